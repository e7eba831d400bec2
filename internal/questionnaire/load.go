package questionnaire

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"regexp"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/bristolhackspace/induction/internal/storage"
)

// ErrNotFound is returned (wrapped) when no definition exists for a name.
var ErrNotFound = errors.New("questionnaire not found")

// DefinitionError reports a stored definition that exists but cannot be
// decoded. It is a deployment problem, not a request problem.
type DefinitionError struct {
	Name string
	Err  error
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("questionnaire %q: malformed definition: %v", e.Name, e.Err)
}

func (e *DefinitionError) Unwrap() error { return e.Err }

// Source loads questionnaires by name.
type Source interface {
	Load(ctx context.Context, name string) (Questionnaire, error)
	List(ctx context.Context) ([]string, error)
}

var validName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

// ValidName reports whether name may be used to look up a definition.
func ValidName(name string) bool { return validName.MatchString(name) }

// extensions are tried in order for each name.
var extensions = []string{".json", ".yaml", ".yml"}

const schemaURL = "https://bristolhackspace.org/schemas/questionnaire.schema.json"

// Loader reads definitions from a storage.Store and checks them against the
// questionnaire schema. It re-reads the store on every call.
type Loader struct {
	store  storage.Store
	schema *jsonschema.Schema
}

func NewLoader(store storage.Store, schemaDoc []byte) (*Loader, error) {
	if store == nil {
		return nil, errors.New("questionnaire: nil store")
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaDoc)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Loader{store: store, schema: schema}, nil
}

func (l *Loader) Load(ctx context.Context, name string) (Questionnaire, error) {
	if err := ctx.Err(); err != nil {
		return Questionnaire{}, err
	}
	if !ValidName(name) {
		return Questionnaire{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	for _, ext := range extensions {
		data, err := l.read(name + ext)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return Questionnaire{}, fmt.Errorf("read questionnaire %q: %w", name, err)
		}
		q, err := l.decode(data, ext)
		if err != nil {
			return Questionnaire{}, &DefinitionError{Name: name, Err: err}
		}
		q.Name = name
		return q, nil
	}
	return Questionnaire{}, fmt.Errorf("%w: %q", ErrNotFound, name)
}

// List returns the names of all definitions in the store, sorted and
// de-duplicated across extensions.
func (l *Loader) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	keys, err := l.store.Keys()
	if err != nil {
		return nil, fmt.Errorf("list questionnaires: %w", err)
	}
	seen := map[string]struct{}{}
	out := []string{}
	for _, k := range keys {
		for _, ext := range extensions {
			name, ok := strings.CutSuffix(k, ext)
			if !ok || !ValidName(name) {
				continue
			}
			if _, dup := seen[name]; !dup {
				seen[name] = struct{}{}
				out = append(out, name)
			}
		}
	}
	return out, nil
}

func (l *Loader) read(key string) ([]byte, error) {
	rc, err := l.store.Open(key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// decode normalizes the document to JSON, validates it against the schema
// and decodes it into the model.
func (l *Loader) decode(data []byte, ext string) (Questionnaire, error) {
	if ext != ".json" {
		var doc interface{}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return Questionnaire{}, fmt.Errorf("parse yaml: %w", err)
		}
		converted, err := json.Marshal(doc)
		if err != nil {
			return Questionnaire{}, fmt.Errorf("convert yaml: %w", err)
		}
		data = converted
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return Questionnaire{}, fmt.Errorf("parse json: %w", err)
	}
	if err := l.schema.Validate(doc); err != nil {
		return Questionnaire{}, fmt.Errorf("schema: %w", err)
	}

	var q Questionnaire
	if err := json.Unmarshal(data, &q); err != nil {
		return Questionnaire{}, fmt.Errorf("decode: %w", err)
	}
	return q, nil
}
