// Package vcard converts contact fields to and from their canonical
// vCard 4.0 representation. The serialized form is what the store
// keeps in card_data; the UID embedded in it is the contact's stable
// external identifier.
package vcard

import (
	"errors"
	"fmt"
	"strings"
	"time"

	govcard "github.com/emersion/go-vcard"
	"github.com/google/uuid"

	"github.com/cardfile/cardfile/internal/contact"
)

// revTimeLayout is the UTC timestamp format vCard 4.0 uses for REV.
const revTimeLayout = "20060102T150405Z"

// Encode serializes the fields as a vCard 4.0 document. existingUID
// carries a contact's current UID so updates keep a stable identifier;
// pass "" when creating and a fresh UID is generated. The returned UID
// is the one embedded in the card.
//
// Encode satisfies the import executor's Serializer contract and is
// the single serialization path for imports and direct contact saves.
func Encode(existingUID string, f contact.Fields) (string, string, error) {
	fn := displayName(f)
	if fn == "" {
		return "", "", errors.New("contact has no name, email, or phone to display")
	}

	uid := existingUID
	if uid == "" {
		uid = uuid.NewString()
	}

	card := make(govcard.Card)
	card.SetValue(govcard.FieldFormattedName, fn)

	if f.FirstName != "" || f.LastName != "" {
		card.AddName(&govcard.Name{
			GivenName:  f.FirstName,
			FamilyName: f.LastName,
		})
	}
	if f.Email != "" {
		card.SetValue(govcard.FieldEmail, f.Email)
	}
	if f.Phone != "" {
		card.SetValue(govcard.FieldTelephone, f.Phone)
	}
	if f.Organization != "" {
		card.SetValue(govcard.FieldOrganization, f.Organization)
	}
	if f.JobTitle != "" {
		card.SetValue(govcard.FieldTitle, f.JobTitle)
	}
	if f.Address != "" {
		card.AddAddress(&govcard.Address{StreetAddress: f.Address})
	}
	if f.Notes != "" {
		card.SetValue(govcard.FieldNote, f.Notes)
	}
	card.SetValue(govcard.FieldUID, uid)
	card.SetValue(govcard.FieldRevision, time.Now().UTC().Format(revTimeLayout))

	govcard.ToV4(card)

	var sb strings.Builder
	if err := govcard.NewEncoder(&sb).Encode(card); err != nil {
		return "", "", fmt.Errorf("encode vcard: %w", err)
	}
	return uid, sb.String(), nil
}

// Decode parses a serialized vCard back into contact fields. The UID
// and the original card text ride along in the returned fields.
func Decode(data string) (contact.Fields, error) {
	card, err := govcard.NewDecoder(strings.NewReader(data)).Decode()
	if err != nil {
		return contact.Fields{}, fmt.Errorf("decode vcard: %w", err)
	}

	f := contact.Fields{
		FullName:     card.PreferredValue(govcard.FieldFormattedName),
		Email:        card.PreferredValue(govcard.FieldEmail),
		Phone:        card.PreferredValue(govcard.FieldTelephone),
		Organization: card.PreferredValue(govcard.FieldOrganization),
		JobTitle:     card.PreferredValue(govcard.FieldTitle),
		Notes:        card.PreferredValue(govcard.FieldNote),
		UID:          card.Value(govcard.FieldUID),
		CardData:     data,
	}
	if name := card.Name(); name != nil {
		f.FirstName = name.GivenName
		f.LastName = name.FamilyName
	}
	if addr := card.Address(); addr != nil {
		f.Address = addr.StreetAddress
	}
	return f, nil
}

// displayName picks the FN value: the full name, then joined name
// parts, then email, then phone. vCard 4.0 requires FN on every card.
func displayName(f contact.Fields) string {
	if name := strings.TrimSpace(f.FullName); name != "" {
		return name
	}
	parts := make([]string, 0, 2)
	if s := strings.TrimSpace(f.FirstName); s != "" {
		parts = append(parts, s)
	}
	if s := strings.TrimSpace(f.LastName); s != "" {
		parts = append(parts, s)
	}
	if len(parts) > 0 {
		return strings.Join(parts, " ")
	}
	if s := strings.TrimSpace(f.Email); s != "" {
		return s
	}
	return strings.TrimSpace(f.Phone)
}
