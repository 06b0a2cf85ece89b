package cachedb

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

var ErrPayloadNotUnmarshalable = errors.New("payload could not be unmarshalled, probably invalid json")
var ErrJSONPathInvalid = errors.New("json path is invalid")

// Record is a read-only view of one cached entity. The payload is
// opaque JSON; only the id field was ever interpreted by the cache.
type Record struct {
	store    string
	id       string
	payload  []byte
	storedAt time.Time
}

func (r Record) Store() string {
	return r.store
}

func (r Record) ID() string {
	return r.id
}

func (r Record) Payload() []byte {
	return r.payload
}

func (r Record) StoredAt() time.Time {
	return r.storedAt
}

func (r Record) Unmarshal(dest interface{}) error {
	if err := json.Unmarshal(r.payload, dest); err != nil {
		return errors.Wrap(ErrPayloadNotUnmarshalable, err.Error())
	}

	return nil
}

func (r Record) String(path string) (string, error) {
	raw := gjson.GetBytes(r.payload, path)
	if !raw.Exists() {
		return "", errors.Wrapf(ErrJSONPathInvalid, "path %s", path)
	}

	return raw.String(), nil
}

func (r Record) StringOrDefault(path, def string) string {
	v, err := r.String(path)
	if err != nil {
		return def
	}

	return v
}

func (r Record) Int(path string) (int, error) {
	raw := gjson.GetBytes(r.payload, path)
	if !raw.Exists() {
		return 0, errors.Wrapf(ErrJSONPathInvalid, "path %s", path)
	}

	return int(raw.Int()), nil
}

func (r Record) IntOrDefault(path string, def int) int {
	v, err := r.Int(path)
	if err != nil {
		return def
	}

	return v
}

func (r Record) Float(path string) (float64, error) {
	raw := gjson.GetBytes(r.payload, path)
	if !raw.Exists() {
		return 0, errors.Wrapf(ErrJSONPathInvalid, "path %s", path)
	}

	return raw.Float(), nil
}

func (r Record) FloatOrDefault(path string, def float64) float64 {
	v, err := r.Float(path)
	if err != nil {
		return def
	}

	return v
}
