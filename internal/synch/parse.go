package synch

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// Document is the on-disk form of a synchronization description together
// with the playback settings that usually travel with it.
type Document struct {
	// ActiveDomain and PassiveDomain name the playback domains ("time",
	// "position" or empty for default).
	ActiveDomain  string `json:"active_domain,omitempty" yaml:"active_domain,omitempty"`
	PassiveDomain string `json:"passive_domain,omitempty" yaml:"passive_domain,omitempty"`

	// Direction is +1 or -1; 0 lets the engine infer it.
	Direction int `json:"direction,omitempty" yaml:"direction,omitempty"`

	Synchronization Description `json:"synchronization" yaml:"synchronization"`
}

// Domains parses the document's domain names.
func (d *Document) Domains() (active, passive Domain, err error) {
	if active, err = ParseDomain(d.ActiveDomain); err != nil {
		return DomainDefault, DomainDefault, NewConfigurationError(err.Error())
	}
	if passive, err = ParseDomain(d.PassiveDomain); err != nil {
		return DomainDefault, DomainDefault, NewConfigurationError(err.Error())
	}
	return active, passive, nil
}

func (d *Document) validate() error {
	if d.Direction != 0 && d.Direction != 1 && d.Direction != -1 {
		return NewConfigurationError(fmt.Sprintf("direction must be 1 or -1, got %d", d.Direction))
	}
	if _, _, err := d.Domains(); err != nil {
		return err
	}
	return d.Synchronization.Validate()
}

// ParseYAML decodes a YAML document. Unknown fields are rejected.
func ParseYAML(data []byte) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, &Error{Code: ErrCodeConfiguration, Message: "invalid YAML description", Group: -1, Err: err}
	}
	if err := doc.validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ParseJSON decodes a JSON document. Unknown fields are rejected.
func ParseJSON(data []byte) (*Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, &Error{Code: ErrCodeConfiguration, Message: "invalid JSON description", Group: -1, Err: err}
	}
	if err := doc.validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ParseCUE compiles a CUE document, unifies it with the embedded #Document
// schema and decodes the concrete result.
func ParseCUE(data []byte, filename string) (*Document, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile description schema: %w", err)
	}

	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, cueConfigurationError(err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Document")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, cueConfigurationError(err)
	}

	var doc Document
	if err := unified.Decode(&doc); err != nil {
		return nil, cueConfigurationError(err)
	}
	if err := doc.validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// LoadFile reads a description, choosing the format from the extension:
// .yaml/.yml, .json or .cue.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read description: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	case ".json":
		return ParseJSON(data)
	case ".cue":
		return ParseCUE(data, path)
	default:
		return nil, NewConfigurationError(fmt.Sprintf("unsupported description format %q", filepath.Ext(path)))
	}
}

// cueConfigurationError keeps the first CUE error with its position.
func cueConfigurationError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &Error{Code: ErrCodeConfiguration, Message: "invalid CUE description", Group: -1, Err: err}
	}

	first := errs[0]
	msg := first.Error()
	if positions := cueerrors.Positions(first); len(positions) > 0 && positions[0].IsValid() {
		msg = fmt.Sprintf("%s:%d:%d: %s", positions[0].Filename(), positions[0].Line(), positions[0].Column(), msg)
	}
	return &Error{Code: ErrCodeConfiguration, Message: msg, Group: -1, Err: err}
}
