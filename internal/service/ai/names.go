package ai

import (
	"os"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// LoadClassNames reads the class names from a YOLO dataset file.
func LoadClassNames(path string) (map[int]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	return ParseClassNames(data)
}

// ParseClassNames accepts both forms of the "names" key:
//
//	names: [Hardhat, NO-Hardhat]
//	names: {0: Hardhat, 1: NO-Hardhat}
func ParseClassNames(data []byte) (map[int]string, error) {
	var doc struct {
		Names yaml.Node `yaml:"names"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "failed to parse dataset file")
	}

	names := make(map[int]string)
	switch doc.Names.Kind {
	case yaml.SequenceNode:
		for i, n := range doc.Names.Content {
			names[i] = n.Value
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(doc.Names.Content); i += 2 {
			id, err := strconv.Atoi(doc.Names.Content[i].Value)
			if err != nil {
				return nil, errors.Errorf("invalid class id %q", doc.Names.Content[i].Value)
			}
			names[id] = doc.Names.Content[i+1].Value
		}
	default:
		return nil, errors.New("dataset file has no names")
	}
	return names, nil
}
