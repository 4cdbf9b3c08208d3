package cryptox

import (
	"errors"
	"maps"
	"sort"

	"github.com/dmitrijs2005/fittrack/internal/common"
)

// FieldErrors collects per-field decryption failures for one record, keyed
// by field name. A nil or empty FieldErrors means every field succeeded.
type FieldErrors map[string]error

// Fields returns the failed field names in a stable order.
func (fe FieldErrors) Fields() []string {
	names := make([]string, 0, len(fe))
	for name := range fe {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Err joins all failures into one error, or nil when there are none.
func (fe FieldErrors) Err() error {
	if len(fe) == 0 {
		return nil
	}
	errs := make([]error, 0, len(fe))
	for _, name := range fe.Fields() {
		errs = append(errs, fe[name])
	}
	return errors.Join(errs...)
}

func (fe *FieldErrors) add(field string, err error) {
	if *fe == nil {
		*fe = make(FieldErrors)
	}
	(*fe)[field] = err
}

// EncryptObjectFields returns a copy of obj in which each listed field holding
// a string (or non-nil *string) is replaced by its encrypted bundle. Absent
// and nil fields are passed through; other keys are never touched.
// A listed field of any other type is a ValidationFailure.
func (c *FieldCipher) EncryptObjectFields(obj map[string]any, fields []string) (map[string]any, error) {
	out := maps.Clone(obj)
	for _, field := range fields {
		plaintext, ok, err := stringField(out, field)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		bundle, err := c.EncryptField(plaintext)
		if err != nil {
			return nil, err
		}
		out[field] = bundle
	}
	return out, nil
}

// DecryptObjectFields returns a copy of obj with each listed field decrypted.
//
// A field that fails to decrypt does not stop the others: it is set to nil in
// the returned copy and its error is reported in FieldErrors, so a single
// corrupt column never makes the whole record unreadable.
func (c *FieldCipher) DecryptObjectFields(obj map[string]any, fields []string) (map[string]any, FieldErrors) {
	out := maps.Clone(obj)
	var errs FieldErrors
	for _, field := range fields {
		bundle, ok, err := stringField(out, field)
		if err != nil {
			out[field] = nil
			errs.add(field, common.Wrap(common.KindDecryptionFailure, err, "Failed to decrypt field %s", field))
			continue
		}
		if !ok {
			continue
		}
		plaintext, err := c.DecryptField(bundle)
		if err != nil {
			out[field] = nil
			errs.add(field, err)
			continue
		}
		out[field] = plaintext
	}
	return out, errs
}

// EncryptStrings encrypts the pointed-to values in place. Nil pointers are
// skipped. On error some values may already have been replaced.
func (c *FieldCipher) EncryptStrings(fields map[string]*string) error {
	for _, name := range sortedKeys(fields) {
		p := fields[name]
		if p == nil {
			continue
		}
		bundle, err := c.EncryptField(*p)
		if err != nil {
			return err
		}
		*p = bundle
	}
	return nil
}

// DecryptStrings decrypts the pointed-to values in place with the same
// partial-failure policy as DecryptObjectFields: a failing value is cleared
// to "" and reported, the remaining values are still decrypted.
func (c *FieldCipher) DecryptStrings(fields map[string]*string) FieldErrors {
	var errs FieldErrors
	for _, name := range sortedKeys(fields) {
		p := fields[name]
		if p == nil {
			continue
		}
		plaintext, err := c.DecryptField(*p)
		if err != nil {
			*p = ""
			errs.add(name, err)
			continue
		}
		*p = plaintext
	}
	return errs
}

func stringField(obj map[string]any, field string) (string, bool, error) {
	v, present := obj[field]
	if !present || v == nil {
		return "", false, nil
	}
	switch s := v.(type) {
	case string:
		return s, true, nil
	case *string:
		if s == nil {
			return "", false, nil
		}
		return *s, true, nil
	default:
		return "", false, common.New(common.KindValidationFailure, "field %s must be a string, got %T", field, v)
	}
}

func sortedKeys(m map[string]*string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
