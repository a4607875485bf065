// Package plan loads a benchmark document from YAML: resolving includes,
// expanding with_items, applying tag filters, and merging .env values into
// the document's global config, producing a config.Config plus the ordered
// list of actions.Action to run every iteration.
package plan

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/blackcoderx/barrage/pkg/actions"
)

// rawDoc is the generic shape of a benchmark YAML document, used as the
// first unmarshal pass so unknown/extra top-level keys never cause a load
// failure.
type rawDoc struct {
	Concurrency int                    `yaml:"concurrency"`
	Iterations  int                    `yaml:"iterations"`
	Rampup      int                    `yaml:"rampup"`
	Env         string                 `yaml:"env"`
	Urls        map[string]string      `yaml:"urls"`
	Global      map[string]interface{} `yaml:"global"`
	Databases   map[string]rawDbEntry  `yaml:"database"`
	Plan        []rawItem              `yaml:"plan"`
}

type rawDbEntry struct {
	Type             string `yaml:"type"`
	ConnectionString string `yaml:"connection_string"`
	Host             string `yaml:"host"`
	Port             int    `yaml:"port"`
	User             string `yaml:"user"`
	Password         string `yaml:"password"`
	DbName           string `yaml:"dbname"`
}

// rawItem is one entry of the top-level "plan" sequence. Exactly one of
// the action-shaped fields (Request/Assert/Delay/Exec/DbQuery/Set/Include)
// is set; Name/Assign/Tags are common to every item.
//
// The grammar overloads "assign":
// a scalar ("assign: myvar") names the context key another action's result
// (request/exec/db_query) should be stored under, while a mapping
// ("assign: {key: ..., value: ...}") is itself the Assign action. UnmarshalYAML
// below disambiguates by node kind since a struct tag can't.
type rawItem struct {
	Name    string
	Assign  string // scalar form: store-result-under-this-key
	Tags    []string
	Include string

	Request *rawRequest
	Assert  *rawAssert
	Delay   *rawDelay
	Exec    string
	DbQuery *rawDbQuery
	Set     *rawSet // mapping form: the Assign action itself

	WithItems      interface{}
	WithItemsRange *rawRange
	CSVFile        string
	CSVQuoteChar   string
	ItemsFile      string
	Shuffle        bool
	Pick           *int
}

type rawRange struct {
	Start int `yaml:"start"`
	Stop  int `yaml:"stop"`
	Step  int `yaml:"step"`
}

type rawRequest struct {
	Base      string            `yaml:"base"`
	URL       string            `yaml:"url"`
	Method    string            `yaml:"method"`
	Headers   map[string]string `yaml:"headers"`
	Body      string            `yaml:"body"`
	Timeout   string            `yaml:"timeout"`
}

type rawAssert struct {
	Key   string      `yaml:"key"`
	Value interface{} `yaml:"value"`
}

type rawDelay struct {
	Seconds string `yaml:"seconds"`
}

type rawDbQuery struct {
	Target string `yaml:"target"`
	Query  string `yaml:"query"`
}

type rawSet struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

type rawCSVSource struct {
	FileName  string `yaml:"file_name"`
	QuoteChar string `yaml:"quote_char"`
}

// UnmarshalYAML decodes one plan item, routing the overloaded "assign" key
// to either the scalar result-target field or the Set (Assign action)
// mapping depending on the node it finds, and accepting both the bare
// string and the {file_name,quote_char} form of with_items_from_csv.
func (r *rawItem) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]yaml.Node
	if err := node.Decode(&raw); err != nil {
		return err
	}

	decodeInto := func(key string, out interface{}) error {
		n, ok := raw[key]
		if !ok {
			return nil
		}
		return n.Decode(out)
	}

	if err := decodeInto("name", &r.Name); err != nil {
		return fmt.Errorf("decoding name: %w", err)
	}
	if err := decodeInto("tags", &r.Tags); err != nil {
		return fmt.Errorf("decoding tags: %w", err)
	}
	if err := decodeInto("include", &r.Include); err != nil {
		return fmt.Errorf("decoding include: %w", err)
	}
	if err := decodeInto("exec", &r.Exec); err != nil {
		return fmt.Errorf("decoding exec: %w", err)
	}
	if n, ok := raw["request"]; ok {
		r.Request = &rawRequest{}
		if err := n.Decode(r.Request); err != nil {
			return fmt.Errorf("decoding request: %w", err)
		}
	}
	if n, ok := raw["assert"]; ok {
		r.Assert = &rawAssert{}
		if err := n.Decode(r.Assert); err != nil {
			return fmt.Errorf("decoding assert: %w", err)
		}
	}
	if n, ok := raw["delay"]; ok {
		r.Delay = &rawDelay{}
		if err := n.Decode(r.Delay); err != nil {
			return fmt.Errorf("decoding delay: %w", err)
		}
	}
	if n, ok := raw["db_query"]; ok {
		r.DbQuery = &rawDbQuery{}
		if err := n.Decode(r.DbQuery); err != nil {
			return fmt.Errorf("decoding db_query: %w", err)
		}
	}
	if n, ok := raw["assign"]; ok {
		switch n.Kind {
		case yaml.MappingNode:
			r.Set = &rawSet{}
			if err := n.Decode(r.Set); err != nil {
				return fmt.Errorf("decoding assign action: %w", err)
			}
		default:
			if err := n.Decode(&r.Assign); err != nil {
				return fmt.Errorf("decoding assign key: %w", err)
			}
		}
	}
	if err := decodeInto("with_items", &r.WithItems); err != nil {
		return fmt.Errorf("decoding with_items: %w", err)
	}
	if n, ok := raw["with_items_range"]; ok {
		r.WithItemsRange = &rawRange{}
		if err := n.Decode(r.WithItemsRange); err != nil {
			return fmt.Errorf("decoding with_items_range: %w", err)
		}
	}
	if n, ok := raw["with_items_from_csv"]; ok {
		switch n.Kind {
		case yaml.ScalarNode:
			if err := n.Decode(&r.CSVFile); err != nil {
				return fmt.Errorf("decoding with_items_from_csv: %w", err)
			}
		default:
			var src rawCSVSource
			if err := n.Decode(&src); err != nil {
				return fmt.Errorf("decoding with_items_from_csv: %w", err)
			}
			r.CSVFile = src.FileName
			r.CSVQuoteChar = src.QuoteChar
		}
	}
	if err := decodeInto("with_items_from_file", &r.ItemsFile); err != nil {
		return fmt.Errorf("decoding with_items_from_file: %w", err)
	}
	if err := decodeInto("shuffle", &r.Shuffle); err != nil {
		return fmt.Errorf("decoding shuffle: %w", err)
	}
	if n, ok := raw["pick"]; ok {
		var p int
		if err := n.Decode(&p); err != nil {
			return fmt.Errorf("decoding pick: %w", err)
		}
		r.Pick = &p
	}

	return nil
}

// Item is a resolved, tag-filterable plan entry: the action to run plus the
// metadata the loader and tag filter need before execution.
type Item struct {
	Name   string
	Tags   []string
	Action actions.Action
}
