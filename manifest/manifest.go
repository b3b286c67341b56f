package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
	"k8s.io/apimachinery/pkg/util/validation"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid manifest")

// IsManifest reports whether path looks like a YAML
// manifest.
func IsManifest(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// Validate decodes the YAML stream in content and checks
// each document. Documents without a kind are not
// Kubernetes objects and are skipped. All problems of all
// documents are reported together.
func Validate(content []byte) error {
	const errCtx = "validating manifest"

	docs, err := decodeAllDocs(content)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	var errs []error

	for idx, doc := range docs {
		if err := validateObject(doc); err != nil {
			errs = append(errs, fmt.Errorf(
				"document %d: %w", idx, err,
			))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf(
			"%s: %w", errCtx, errors.Join(errs...),
		)
	}

	return nil
}

// decodeAllDocs decodes all YAML documents from raw
// bytes into a slice of maps. Empty documents are
// dropped.
func decodeAllDocs(
	raw []byte,
) ([]map[string]interface{}, error) {
	const errCtx = "decoding all docs"

	decoder := yaml.NewDecoder(bytes.NewReader(raw))

	var docs []map[string]interface{}

	for {
		var doc map[string]interface{}

		err := decoder.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}

		if doc == nil {
			continue
		}

		docs = append(docs, doc)
	}

	return docs, nil
}

// kustomizeGroup is the API group of kustomization and
// component files. They carry no object metadata.
const kustomizeGroup = "kustomize.config.k8s.io/"

func validateObject(obj map[string]interface{}) error {
	kind := extractKind(obj)
	if kind == "" {
		return nil
	}

	apiVersion, _ := obj["apiVersion"].(string)
	if strings.HasPrefix(apiVersion, kustomizeGroup) {
		return nil
	}

	if items, ok := obj["items"].([]interface{}); ok &&
		strings.HasSuffix(kind, "List") {
		return validateItems(items)
	}

	metadata, ok := obj["metadata"].(map[string]interface{})
	if !ok {
		return nil
	}

	name, err := metadataString(metadata, "name")
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalid, kind, err)
	}

	generateName, err := metadataString(metadata, "generateName")
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalid, kind, err)
	}

	ns, err := metadataString(metadata, "namespace")
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalid, kind, err)
	}

	var problems []string

	switch {
	case name != "":
		for _, msg := range validation.IsDNS1123Subdomain(name) {
			problems = append(problems, "name: "+msg)
		}
	case generateName != "":
		// The server appends a random suffix.
		base := strings.TrimSuffix(generateName, "-")
		for _, msg := range validation.IsDNS1123Subdomain(base) {
			problems = append(problems, "generateName: "+msg)
		}

		name = generateName
	default:
		return fmt.Errorf(
			"%w: %s: missing metadata.name",
			ErrInvalid, kind,
		)
	}

	if ns != "" {
		for _, msg := range validation.IsDNS1123Label(ns) {
			problems = append(problems, "namespace: "+msg)
		}
	}

	problems = append(problems, labelProblems(metadata)...)

	if len(problems) > 0 {
		return fmt.Errorf(
			"%w: %s %q: %s",
			ErrInvalid, kind, name,
			strings.Join(problems, "; "),
		)
	}

	return nil
}

// validateItems checks the objects of a List document.
func validateItems(items []interface{}) error {
	var errs []error

	for idx, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			errs = append(errs, fmt.Errorf(
				"%w: items[%d]: not an object", ErrInvalid, idx,
			))

			continue
		}

		if err := validateObject(obj); err != nil {
			errs = append(errs, fmt.Errorf(
				"items[%d]: %w", idx, err,
			))
		}
	}

	return errors.Join(errs...)
}

// labelProblems checks metadata.labels keys and values in
// key order.
func labelProblems(metadata map[string]interface{}) []string {
	labels, ok := metadata["labels"].(map[string]interface{})
	if !ok {
		return nil
	}

	keys := make([]string, 0, len(labels))
	for key := range labels {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	var problems []string

	for _, key := range keys {
		for _, msg := range validation.IsQualifiedName(key) {
			problems = append(
				problems, "label "+key+": "+msg,
			)
		}

		val, ok := labels[key].(string)
		if !ok {
			continue
		}

		for _, msg := range validation.IsValidLabelValue(val) {
			problems = append(
				problems, "label "+key+" value: "+msg,
			)
		}
	}

	return problems
}

// metadataString retrieves metadata.<field>. An absent
// or null field is "". Any other non-string is an error.
func metadataString(
	metadata map[string]interface{},
	field string,
) (string, error) {
	raw, ok := metadata[field]
	if !ok || raw == nil {
		return "", nil
	}

	val, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf(
			"metadata.%s must be a string, got %T", field, raw,
		)
	}

	return val, nil
}

// extractKind retrieves the kind field from a YAML object.
func extractKind(
	obj map[string]interface{},
) string {
	kind, ok := obj["kind"].(string)
	if !ok {
		return ""
	}

	return kind
}
