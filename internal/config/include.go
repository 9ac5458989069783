package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const includeTag = "!include"

// ExpandIncludes resolves !include directives so credentials can be kept in
// a separate file. Two forms are accepted:
//
//	"!include": secrets.yaml        # mapping key, merged into the mapping
//	source: !include source.yaml    # tagged value, replaced by the file
//
// A mapping key may also list several files. Local keys win over included
// ones and nested mappings are merged. Relative paths resolve against
// baseDir.
func ExpandIncludes(raw []byte, baseDir string) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return raw, nil
	}
	root := doc.Content[0]
	if err := expandNode(root, baseDir, map[string]struct{}{}); err != nil {
		return nil, err
	}
	return yaml.Marshal(root)
}

func expandNode(n *yaml.Node, baseDir string, seen map[string]struct{}) error {
	if n.Tag == includeTag {
		if n.Kind != yaml.ScalarNode {
			return fmt.Errorf("%s value must be a file path", includeTag)
		}
		inc, err := loadInclude(n.Value, baseDir, seen)
		if err != nil {
			return err
		}
		*n = *inc
		return nil
	}

	switch n.Kind {
	case yaml.MappingNode:
		merged := &yaml.Node{Kind: yaml.MappingNode}
		var local []*yaml.Node
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if k.Value != includeTag && k.Tag != includeTag {
				local = append(local, k, v)
				continue
			}
			paths, err := includePaths(v)
			if err != nil {
				return err
			}
			for _, p := range paths {
				inc, err := loadInclude(p, baseDir, seen)
				if err != nil {
					return err
				}
				if inc.Kind != yaml.MappingNode {
					return fmt.Errorf("%s at mapping scope must resolve to a mapping: %s", includeTag, p)
				}
				mergeMapping(merged, inc)
			}
		}
		for i := 0; i < len(local); i += 2 {
			if err := expandNode(local[i+1], baseDir, seen); err != nil {
				return err
			}
		}
		mergeMapping(merged, &yaml.Node{Kind: yaml.MappingNode, Content: local})
		*n = *merged

	case yaml.SequenceNode:
		for _, c := range n.Content {
			if err := expandNode(c, baseDir, seen); err != nil {
				return err
			}
		}
	}
	return nil
}

func includePaths(v *yaml.Node) ([]string, error) {
	switch v.Kind {
	case yaml.ScalarNode:
		return []string{v.Value}, nil
	case yaml.SequenceNode:
		paths := make([]string, 0, len(v.Content))
		for _, it := range v.Content {
			if it.Kind != yaml.ScalarNode {
				return nil, errors.New("!include list must contain only file paths")
			}
			paths = append(paths, it.Value)
		}
		return paths, nil
	default:
		return nil, fmt.Errorf("!include value must be a path or a list of paths")
	}
}

func loadInclude(path, baseDir string, seen map[string]struct{}) (*yaml.Node, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if _, ok := seen[abs]; ok {
		return nil, fmt.Errorf("include cycle detected for %s", abs)
	}
	seen[abs] = struct{}{}
	defer delete(seen, abs)

	b, err := os.ReadFile(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("included file not found: %s", path)
	}
	if err != nil {
		return nil, err
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("invalid YAML in included file %s: %w", abs, err)
	}
	if len(doc.Content) == 0 {
		return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}, nil
	}
	root := doc.Content[0]
	if err := expandNode(root, filepath.Dir(abs), seen); err != nil {
		return nil, err
	}
	return root, nil
}

// mergeMapping merges src into dst. Mappings merge recursively, anything
// else in src replaces the dst value.
func mergeMapping(dst, src *yaml.Node) {
	for i := 0; i+1 < len(src.Content); i += 2 {
		k, v := src.Content[i], src.Content[i+1]
		j := keyIndex(dst, k.Value)
		if j < 0 {
			dst.Content = append(dst.Content, k, v)
			continue
		}
		if cur := dst.Content[j+1]; cur.Kind == yaml.MappingNode && v.Kind == yaml.MappingNode {
			mergeMapping(cur, v)
			continue
		}
		dst.Content[j+1] = v
	}
}

func keyIndex(m *yaml.Node, key string) int {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return i
		}
	}
	return -1
}
