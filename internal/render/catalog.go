package render

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/tphakala/surveygen/internal/conf"
	"github.com/tphakala/surveygen/internal/errors"
)

// Message keys. The English text doubles as the key and the en translation.
const (
	msgDiagnosisTitle   = "This is a fundus image. Select the statement you agree with."
	msgDiseaseChoice    = "I believe this image shows a patient with %s."
	msgNoDisease        = "I believe this image shows none of the listed diseases."
	msgComparisonTitle  = "Which segmentation map matches the original image better?"
	msgLeft             = "The left map"
	msgRight            = "The right map"
	msgReference        = "Original image"
	msgCertaintyTitle   = "How confident are you in the answer you gave in the previous question?"
	msgCertaintyMin     = "Not at all"
	msgCertaintyMax     = "Completely"
	msgPageTitle        = "Question %d"
	msgAuthTitle        = "Participant information"
	msgAuthName         = "Enter your first name"
	msgAuthSurname      = "Enter your last name"
	msgAuthToken        = "Enter the personal key you received by email"
	msgPrev             = "Previous"
	msgNext             = "Next"
	msgComplete         = "Submit"
	msgCompleted        = "Thank you! Your answers have been recorded."
	msgAlreadyCompleted = "You have already completed this survey."
)

var serbianLatin = map[string]string{
	msgDiagnosisTitle:   "Data Vam je slika očnog dna. Od ponuđenih tvrdnji selektujte onu sa kojom se slažete.",
	msgDiseaseChoice:    "Smatram da ova slika predstavlja pacijenta sa oboljenjem %s.",
	msgNoDisease:        "Smatram da ova slika ne prikazuje ni jedno od navedenih oboljenja.",
	msgComparisonTitle:  "Koja segmentaciona mapa bolje odgovara originalnoj slici?",
	msgLeft:             "Leva mapa",
	msgRight:            "Desna mapa",
	msgReference:        "Originalna slika",
	msgCertaintyTitle:   "Koliko ste pouzdani u odgovor koji ste dali u prethodnom pitanju?",
	msgCertaintyMin:     "Nimalo",
	msgCertaintyMax:     "Sasvim",
	msgPageTitle:        "Pitanje %d",
	msgAuthTitle:        "Unos podataka o učesniku ankete",
	msgAuthName:         "Unesite ime",
	msgAuthSurname:      "Unesite prezime",
	msgAuthToken:        "Unesite lični ključ koji ste dobili putem mejla",
	msgPrev:             "Prethodna",
	msgNext:             "Sledeća",
	msgComplete:         "Pošalji",
	msgCompleted:        "Hvala! Vaši odgovori su sačuvani.",
	msgAlreadyCompleted: "Već ste popunili ovu anketu.",
}

var messageCatalog = buildCatalog()

func buildCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	sr := language.MustParse(conf.LocaleSerbianLatin)
	for key, text := range serbianLatin {
		_ = b.SetString(sr, key, text)
		_ = b.SetString(language.English, key, key)
	}
	return b
}

// newPrinter returns a printer for a configured locale
func newPrinter(locale string) (*message.Printer, error) {
	normalized, err := conf.NormalizeLocale(locale)
	if err != nil {
		return nil, errors.ConfigurationError("render", "render.locale", locale, "unsupported locale %q", locale)
	}
	tag, err := language.Parse(normalized)
	if err != nil {
		return nil, errors.ConfigurationError("render", "render.locale", locale, "invalid locale %q: %v", locale, err)
	}
	return message.NewPrinter(tag, message.Catalog(messageCatalog)), nil
}
