package catalog

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/meridianfx/meridian/pkg/common"
	"github.com/meridianfx/meridian/pkg/utility/fixed"
)

// Catalog is the read-only instrument registry for one trading session.
// Administration of the catalog happens elsewhere; the engine only looks
// symbols up.
type Catalog struct {
	instruments map[string]common.Instrument
}

type catalogFile struct {
	Instruments []common.Instrument `yaml:"instruments"`
}

func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read catalog file %q: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unable to parse catalog: %w", err)
	}
	return New(file.Instruments)
}

func New(instruments []common.Instrument) (*Catalog, error) {
	c := &Catalog{instruments: make(map[string]common.Instrument, len(instruments))}

	for _, instrument := range instruments {
		normalized, err := normalize(instrument)
		if err != nil {
			return nil, err
		}
		key := strings.ToUpper(normalized.Symbol)
		if _, exists := c.instruments[key]; exists {
			return nil, fmt.Errorf("duplicate instrument %q", normalized.Symbol)
		}
		c.instruments[key] = normalized
	}

	return c, nil
}

func (c *Catalog) Get(symbol string) (common.Instrument, bool) {
	instrument, ok := c.instruments[strings.ToUpper(symbol)]
	return instrument, ok
}

func (c *Catalog) All() []common.Instrument {
	out := make([]common.Instrument, 0, len(c.instruments))
	for _, instrument := range c.instruments {
		out = append(out, instrument)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func (c *Catalog) Active() []common.Instrument {
	out := make([]common.Instrument, 0, len(c.instruments))
	for _, instrument := range c.instruments {
		if instrument.IsActive {
			out = append(out, instrument)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func normalize(instrument common.Instrument) (common.Instrument, error) {
	if instrument.Symbol == "" {
		return instrument, fmt.Errorf("instrument with empty symbol")
	}
	if instrument.AssetClass == "" {
		return instrument, fmt.Errorf("instrument %q has no asset class", instrument.Symbol)
	}

	instrument.Symbol = strings.ToUpper(instrument.Symbol)
	if instrument.PricePrecision <= 0 {
		instrument.PricePrecision = 5
	}
	if instrument.MinLot.IsZero() {
		instrument.MinLot = fixed.FromInt(1, 2)
	}
	if instrument.LotStep.IsZero() {
		instrument.LotStep = fixed.FromInt(1, 2)
	}
	if instrument.ContractSize.IsZero() {
		instrument.ContractSize = fixed.One
	}
	if instrument.SpreadModel == "" {
		instrument.SpreadModel = common.SpreadModelFixed
	}
	return instrument, nil
}
