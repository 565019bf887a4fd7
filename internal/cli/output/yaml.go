package output

import (
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/yndnr/respkv-go/pkg/resp"
)

// YAMLFormatter formats replies as YAML.
type YAMLFormatter struct{}

func (f *YAMLFormatter) Format(w io.Writer, v resp.Value) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(Plain(v)); err != nil {
		return err
	}
	return enc.Close()
}
