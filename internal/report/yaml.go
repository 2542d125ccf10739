package report

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"fintrack/internal/core"
)

type yamlTransaction struct {
	Date        *string `yaml:"date"`
	Amount      string  `yaml:"amount"`
	Category    string  `yaml:"category"`
	Description string  `yaml:"description"`
}

// ReadYAML decodes a YAML sequence of transactions. Every entry needs a date
// key (its value may be empty) and an amount; a comma works as the decimal
// separator. The first bad entry aborts the whole batch.
func ReadYAML(r io.Reader) ([]core.Transaction, error) {
	var raw []yamlTransaction
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if err == io.EOF {
			return []core.Transaction{}, nil
		}
		return nil, fmt.Errorf("%w: decode yaml: %v", core.ErrBadInput, err)
	}

	out := make([]core.Transaction, 0, len(raw))
	for i, y := range raw {
		if y.Date == nil {
			return nil, fmt.Errorf("entry %d: %w: date is required", i+1, core.ErrBadInput)
		}
		amount, err := core.ParseLocalAmount(y.Amount)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i+1, err)
		}
		out = append(out, core.Transaction{
			Date:        *y.Date,
			Amount:      amount,
			Category:    y.Category,
			Description: y.Description,
		})
	}
	return out, nil
}

// WriteYAML encodes transactions in the format ReadYAML accepts.
func WriteYAML(w io.Writer, items []core.Transaction) error {
	raw := make([]yamlTransaction, len(items))
	for i, tx := range items {
		date := tx.Date
		raw[i] = yamlTransaction{
			Date:        &date,
			Amount:      core.FormatAmount(tx.Amount),
			Category:    tx.Category,
			Description: tx.Description,
		}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(raw); err != nil {
		return err
	}
	return enc.Close()
}
