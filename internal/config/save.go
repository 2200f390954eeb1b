package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SaveValue sets a dotted key (e.g. "api.base_url") to a scalar value in the
// config file, creating intermediate mappings as needed. Comments and the
// rest of the document are preserved by editing the yaml.Node tree.
func SaveValue(configPath, dottedKey, value string) error {
	parts := strings.Split(dottedKey, ".")
	for _, p := range parts {
		if p == "" {
			return fmt.Errorf("invalid key %q", dottedKey)
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config: %w", err)
	}

	var doc yaml.Node
	if len(bytes.TrimSpace(data)) > 0 {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
	}
	if doc.Kind == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode}}}
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("config root is not a mapping")
	}

	leaf, err := ensureScalar(root, parts)
	if err != nil {
		return err
	}
	leaf.Value, leaf.Tag, leaf.Style = value, "", 0

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&doc); err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	_ = encoder.Close()

	return writeAtomic(configPath, buf.Bytes())
}

// ensureScalar walks path from root, adding missing mappings on the way, and
// returns the scalar node at its end.
func ensureScalar(root *yaml.Node, path []string) (*yaml.Node, error) {
	node := root
	for i, key := range path {
		leaf := i == len(path)-1
		child := lookupKey(node, key)
		if child == nil {
			kind := yaml.MappingNode
			if leaf {
				kind = yaml.ScalarNode
			}
			child = &yaml.Node{Kind: kind}
			node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: key}, child)
		}
		want := yaml.MappingNode
		if leaf {
			want = yaml.ScalarNode
		}
		if child.Kind != want {
			return nil, fmt.Errorf("key %q is not a %s", strings.Join(path[:i+1], "."), kindName(want))
		}
		node = child
	}
	return node, nil
}

func kindName(k yaml.Kind) string {
	if k == yaml.ScalarNode {
		return "scalar"
	}
	return "mapping"
}

func lookupKey(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

// writeAtomic replaces configPath so a crash mid-write never leaves a
// truncated config behind.
func writeAtomic(configPath string, data []byte) (err error) {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(configPath)+".*")
	if err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	_, werr := tmp.Write(data)
	if cerr := tmp.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return fmt.Errorf("saving config: %w", werr)
	}
	if err := os.Rename(tmp.Name(), configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	return nil
}
