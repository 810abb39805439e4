package app

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jaldanatrf/assignment-service/internal/domain"
	"github.com/sirupsen/logrus"
)

// claimFields maps the lowercased wire key to a setter on ClaimMessage.
var claimFields = map[string]func(*domain.ClaimMessage, string){
	"processid":              func(m *domain.ClaimMessage, v string) { m.ProcessID = v },
	"target":                 func(m *domain.ClaimMessage, v string) { m.Target = v },
	"source":                 func(m *domain.ClaimMessage, v string) { m.Source = v },
	"documentnumber":         func(m *domain.ClaimMessage, v string) { m.DocumentNumber = v },
	"invoiceamount":          func(m *domain.ClaimMessage, v string) { m.InvoiceAmount = v },
	"externalreference":      func(m *domain.ClaimMessage, v string) { m.ExternalReference = v },
	"claimid":                func(m *domain.ClaimMessage, v string) { m.ClaimID = v },
	"conceptapplicationcode": func(m *domain.ClaimMessage, v string) { m.ConceptApplicationCode = v },
	"objectioncode":          func(m *domain.ClaimMessage, v string) { m.ObjectionCode = v },
	"value":                  func(m *domain.ClaimMessage, v string) { m.Value = v },
}

// MapClaimFields copies the known claim fields out of a decoded payload.
// Keys match case-insensitively; unknown keys are dropped. Known fields must be
// JSON strings (null counts as absent). Two keys naming the same field in
// different case are rejected.
func MapClaimFields(raw map[string]any, logger logrus.FieldLogger) (domain.ClaimMessage, error) {
	var msg domain.ClaimMessage
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	invalid := make(map[string]string)
	seen := make(map[string][]string, len(raw))
	for key := range raw {
		field := strings.ToLower(key)
		if _, ok := claimFields[field]; ok {
			seen[field] = append(seen[field], key)
		}
	}
	for field, keys := range seen {
		if len(keys) > 1 {
			sort.Strings(keys)
			invalid[field] = "duplicate keys " + strings.Join(keys, ", ")
		}
	}
	if len(invalid) > 0 {
		return domain.ClaimMessage{}, &domain.ValidationError{Fields: invalid}
	}

	for key, value := range raw {
		set, ok := claimFields[strings.ToLower(key)]
		if !ok {
			logger.WithField("key", key).Debug("dropping unknown claim field")
			continue
		}
		if value == nil {
			continue
		}
		s, ok := value.(string)
		if !ok {
			invalid[key] = fmt.Sprintf("must be a string, got %T", value)
			continue
		}
		set(&msg, s)
	}

	if len(invalid) > 0 {
		return domain.ClaimMessage{}, &domain.ValidationError{Fields: invalid}
	}
	return msg, nil
}
