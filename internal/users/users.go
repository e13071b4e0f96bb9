// Package users registers survey respondents and their access tokens.
package users

import (
	"bufio"
	"context"
	"os"
	"strings"

	"github.com/tphakala/surveygen/internal/conf"
	"github.com/tphakala/surveygen/internal/datastore"
	"github.com/tphakala/surveygen/internal/errors"
	"github.com/tphakala/surveygen/internal/logger"
)

// TokenBytes is the number of random bytes in an access token
const TokenBytes = 16

// tokenFunc generates access tokens, replaced in tests
var tokenFunc = func() (string, error) {
	return conf.GenerateRandomSecret(TokenBytes)
}

// Create stores one user per name with a fresh access token. All users are
// created in one transaction.
func Create(ctx context.Context, store datastore.Store, names []string) ([]datastore.User, error) {
	var cleaned []string
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			cleaned = append(cleaned, name)
		}
	}
	if len(cleaned) == 0 {
		return nil, errors.Newf("no user names given").
			Component("users").
			Category(errors.CategoryValidation).
			Build()
	}

	created := make([]datastore.User, 0, len(cleaned))
	err := store.Transaction(ctx, func(tx datastore.Store) error {
		for _, name := range cleaned {
			token, err := tokenFunc()
			if err != nil {
				return errors.New(err).
					Component("users").
					Category(errors.CategoryGeneric).
					Build()
			}
			user := datastore.User{Name: name, AccessToken: token}
			if err := tx.SaveUser(ctx, &user); err != nil {
				return err
			}
			created = append(created, user)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	GetLogger().Info("users created", logger.Int("count", len(created)))
	return created, nil
}

// ReadNames reads one user name per line, skipping blank lines and lines starting with '#'
func ReadNames(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).
			Component("users").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	defer func() { _ = f.Close() }()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.New(err).
			Component("users").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	return names, nil
}

var packageLogger logger.Logger

// GetLogger returns the users module logger
func GetLogger() logger.Logger {
	if packageLogger == nil {
		return logger.Global().Module("users")
	}
	return packageLogger
}

// SetLogger replaces the users module logger
func SetLogger(l logger.Logger) {
	packageLogger = l
}
