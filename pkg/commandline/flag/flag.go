package flag

import (
	"fmt"
	"strings"

	"github.com/trellis-ml/trellis/pkg/utils"
)

type Argslice []string

func (s *Argslice) String() string {
	return fmt.Sprintf("%v", *s)
}

func (s *Argslice) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// Param is a KEY=VALUE pair given on command line.
type Param struct {
	Key   string
	Value string
}

func (p Param) String() string {
	return p.Key + "=" + p.Value
}

// Parse reads "KEY=VALUE" into p. VALUE may contain "=".
func (p *Param) Parse(plain string) error {
	key, value, ok := strings.Cut(plain, "=")
	if !ok || key == "" {
		return fmt.Errorf("not in KEY=VALUE form: %s", plain)
	}
	p.Key = key
	p.Value = value
	return nil
}

// Params is a repeatable KEY=VALUE flag, used for hyperparameters.
type Params []Param

func (ps *Params) String() string {
	if ps == nil || len(*ps) == 0 {
		return ""
	}
	return strings.Join(utils.Map(*ps, Param.String), " ")
}

func (ps *Params) Set(v string) error {
	var p Param
	if err := p.Parse(v); err != nil {
		return err
	}
	*ps = append(*ps, p)
	return nil
}

// Map flattens params. A key given twice takes the last value.
func (ps *Params) Map() map[string]string {
	if ps == nil {
		return map[string]string{}
	}
	m := map[string]string{}
	for _, p := range *ps {
		m[p.Key] = p.Value
	}
	return m
}
