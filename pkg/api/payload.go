package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/goliatone/go-rentadmin/pkg/listing"
)

// Encoding selects how create and update bodies are sent.
type Encoding string

const (
	// EncodingMultipart sends fields as form values and media as file parts.
	EncodingMultipart Encoding = "multipart"
	// EncodingJSON sends the entity as a JSON document with media file names.
	EncodingJSON Encoding = "json"
)

// ParseEncoding validates raw, defaulting to multipart.
func ParseEncoding(raw string) (Encoding, error) {
	switch Encoding(raw) {
	case "", EncodingMultipart:
		return EncodingMultipart, nil
	case EncodingJSON:
		return EncodingJSON, nil
	default:
		return "", fmt.Errorf("api: unknown submit encoding %q", raw)
	}
}

// Upload is a local file selected for a media slot.
type Upload struct {
	Slot string
	Path string
	Name string
}

// Payload is a create or update body.
type Payload struct {
	Entity   listing.Entity
	Uploads  []Upload
	Encoding Encoding
}

var mediaSlots = []string{"photos", "videos"}

func (p Payload) uploadFor(slot, ref string) (Upload, bool) {
	for _, upload := range p.Uploads {
		if upload.Slot == slot && upload.Path == ref {
			return upload, true
		}
	}
	return Upload{}, false
}

// encode returns the body and its content type. Multipart bodies are
// streamed from disk as the request is sent; callers must close the body.
func (p Payload) encode() (io.ReadCloser, string, error) {
	if p.Entity == nil {
		return nil, "", fmt.Errorf("api: payload has no entity")
	}
	switch p.Encoding {
	case EncodingJSON:
		return p.encodeJSON()
	case "", EncodingMultipart:
		return p.encodeMultipart()
	default:
		return nil, "", fmt.Errorf("api: unknown submit encoding %q", p.Encoding)
	}
}

func (p Payload) fields() (map[string]any, error) {
	raw, err := json.Marshal(p.Entity)
	if err != nil {
		return nil, fmt.Errorf("api: encode entity: %w", err)
	}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var fields map[string]any
	if err := decoder.Decode(&fields); err != nil {
		return nil, fmt.Errorf("api: encode entity: %w", err)
	}
	delete(fields, "_id")
	delete(fields, "image")
	return fields, nil
}

func (p Payload) encodeJSON() (io.ReadCloser, string, error) {
	fields, err := p.fields()
	if err != nil {
		return nil, "", err
	}
	base := p.Entity.Base()
	for _, slot := range mediaSlots {
		refs := base.Media(slot)
		names := make([]string, 0, len(refs))
		for _, ref := range refs {
			if upload, ok := p.uploadFor(slot, ref); ok {
				names = append(names, upload.Name)
				continue
			}
			names = append(names, ref)
		}
		fields[slot] = names
	}
	body, err := json.Marshal(fields)
	if err != nil {
		return nil, "", fmt.Errorf("api: encode entity: %w", err)
	}
	return io.NopCloser(bytes.NewReader(body)), "application/json", nil
}

func (p Payload) encodeMultipart() (io.ReadCloser, string, error) {
	fields, err := p.fields()
	if err != nil {
		return nil, "", err
	}
	for _, upload := range p.Uploads {
		if _, err := os.Stat(upload.Path); err != nil {
			return nil, "", fmt.Errorf("api: open %s: %w", upload.Path, err)
		}
	}

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		err := p.writeMultipart(writer, fields)
		if err == nil {
			err = writer.Close()
		}
		pw.CloseWithError(err)
	}()
	return pr, writer.FormDataContentType(), nil
}

func (p Payload) writeMultipart(writer *multipart.Writer, fields map[string]any) error {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if key == "photos" || key == "videos" {
			continue
		}
		if err := writeField(writer, key, fields[key]); err != nil {
			return err
		}
	}

	base := p.Entity.Base()
	for _, slot := range mediaSlots {
		for _, ref := range base.Media(slot) {
			upload, ok := p.uploadFor(slot, ref)
			if !ok {
				if err := writer.WriteField(slot, ref); err != nil {
					return fmt.Errorf("api: write %s: %w", slot, err)
				}
				continue
			}
			if err := writeFile(writer, upload); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeField(writer *multipart.Writer, key string, value any) error {
	switch v := value.(type) {
	case nil:
		return writer.WriteField(key, "")
	case map[string]any:
		nested := make([]string, 0, len(v))
		for k := range v {
			nested = append(nested, k)
		}
		sort.Strings(nested)
		for _, k := range nested {
			if err := writeField(writer, key+"["+k+"]", v[k]); err != nil {
				return err
			}
		}
		return nil
	case []any:
		for _, item := range v {
			if err := writer.WriteField(key, scalarText(item)); err != nil {
				return fmt.Errorf("api: write %s: %w", key, err)
			}
		}
		return nil
	default:
		if err := writer.WriteField(key, scalarText(v)); err != nil {
			return fmt.Errorf("api: write %s: %w", key, err)
		}
		return nil
	}
}

func scalarText(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case json.Number:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func writeFile(writer *multipart.Writer, upload Upload) error {
	file, err := os.Open(upload.Path)
	if err != nil {
		return fmt.Errorf("api: open %s: %w", upload.Path, err)
	}
	defer file.Close()

	name := upload.Name
	if name == "" {
		name = filepath.Base(upload.Path)
	}
	part, err := writer.CreateFormFile(upload.Slot, name)
	if err != nil {
		return fmt.Errorf("api: create part %s: %w", name, err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("api: copy %s: %w", name, err)
	}
	return nil
}
