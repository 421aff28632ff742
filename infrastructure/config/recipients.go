package config

import (
	"fmt"
	"strings"

	"speech-transcriber/domain/notification"
)

// RecipientLookup resolves the names people type on the command line to
// configured email recipients
type RecipientLookup struct {
	email *EmailConfig
}

// NewRecipientLookup creates a new recipient lookup from config
func NewRecipientLookup(cfg *Config) *RecipientLookup {
	return &RecipientLookup{email: &cfg.Email}
}

// LookupRecipient finds recipients whose key, first name, last name or full
// name equals the query. A query containing "@" that matches nothing is
// accepted as a bare address. All matches are returned so the caller can
// report ambiguity.
func (r *RecipientLookup) LookupRecipient(query string) ([]notification.Recipient, error) {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil, notification.ErrRecipientNotFound
	}

	var matches []notification.Recipient
	for key, rc := range r.email.Recipients {
		if matchesRecipient(needle, key, rc) {
			matches = append(matches, notification.Recipient{Name: rc.Name, Address: rc.Address})
		}
	}

	if len(matches) == 0 && strings.Contains(needle, "@") {
		if !isValidEmail(strings.TrimSpace(query)) {
			return nil, fmt.Errorf("%w: %q", notification.ErrInvalidRecipient, query)
		}
		return []notification.Recipient{{Address: strings.TrimSpace(query)}}, nil
	}
	if len(matches) == 0 {
		return nil, notification.ErrRecipientNotFound
	}
	return matches, nil
}

func matchesRecipient(needle, key string, rc RecipientConfig) bool {
	if strings.ToLower(key) == needle || strings.ToLower(rc.Address) == needle {
		return true
	}
	name := strings.ToLower(strings.TrimSpace(rc.Name))
	if name == needle {
		return true
	}
	parts := strings.Fields(name)
	return len(parts) > 0 && (parts[0] == needle || parts[len(parts)-1] == needle)
}

// LookupRecipients resolves several queries, each possibly comma-separated,
// into a de-duplicated recipient list
func (r *RecipientLookup) LookupRecipients(queries []string) ([]notification.Recipient, error) {
	var result []notification.Recipient
	seen := make(map[string]bool)

	for _, q := range queries {
		for _, query := range strings.Split(q, ",") {
			if query = strings.TrimSpace(query); query == "" {
				continue
			}

			matches, err := r.LookupRecipient(query)
			if err != nil {
				return nil, fmt.Errorf("recipient %q: %w", query, err)
			}
			if len(matches) > 1 {
				names := make([]string, len(matches))
				for i, m := range matches {
					names[i] = m.Name
				}
				return nil, fmt.Errorf("%w: %q matches %s, use the key or full name",
					notification.ErrAmbiguousRecipient, query, strings.Join(names, ", "))
			}

			addr := strings.ToLower(matches[0].Address)
			if !seen[addr] {
				seen[addr] = true
				result = append(result, matches[0])
			}
		}
	}

	if len(result) == 0 {
		return nil, notification.ErrRecipientNotFound
	}
	return result, nil
}

// DefaultCC returns the configured default CC recipients
func (r *RecipientLookup) DefaultCC() []notification.Recipient {
	cc := make([]notification.Recipient, len(r.email.DefaultCC))
	for i, rc := range r.email.DefaultCC {
		cc[i] = notification.Recipient{Name: rc.Name, Address: rc.Address}
	}
	return cc
}

// From returns the configured sender
func (r *RecipientLookup) From() notification.Recipient {
	return notification.Recipient{Name: r.email.FromName, Address: r.email.FromAddress}
}
