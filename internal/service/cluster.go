package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"freightrates/internal/domain"
	"freightrates/internal/executor"
	"freightrates/internal/markup"
	"freightrates/internal/port"
)

const clusterSchemaText = `{
  "type": "object",
  "required": ["tables"],
  "properties": {
    "tables": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["data"],
        "properties": {
          "header":    {"type": ["array", "null"]},
          "data":      {"type": "array", "items": {"type": "array"}},
          "data_type": {"type": ["string", "null"]}
        }
      }
    }
  }
}`

var clusterSchema = jsonschema.MustCompileString("cluster-response.json", clusterSchemaText)

// ErrNoClusteredTables is returned when clustering yields nothing usable.
var ErrNoClusteredTables = errors.New("clustering returned no tables")

// TableClusterer regroups reconstructed grids into typed tables through the
// extraction service.
type TableClusterer struct {
	svc port.ExtractionService
}

// NewTableClusterer creates a TableClusterer.
func NewTableClusterer(svc port.ExtractionService) *TableClusterer {
	return &TableClusterer{svc: svc}
}

type clusterTable struct {
	Header   []interface{}   `json:"header"`
	Data     [][]interface{} `json:"data"`
	DataType string          `json:"data_type"`
}

// Cluster sends all grids in one request and returns one section per table
// in the reply. The section type carries the service's label and is
// refined by the classifier afterwards.
func (c *TableClusterer) Cluster(ctx context.Context, tables []markup.Table) ([]domain.Section, error) {
	grids := make([]domain.Grid, len(tables))
	for i, t := range tables {
		grids[i] = t.Grid
	}
	payload, err := json.Marshal(map[string]interface{}{"tables": grids})
	if err != nil {
		return nil, fmt.Errorf("encoding tables: %w", err)
	}

	out, err := c.svc.Extract(ctx, port.ExtractInput{Task: port.TaskClusterTables, Context: string(payload)})
	if err != nil {
		return nil, fmt.Errorf("clustering tables: %w", err)
	}

	obj, err := executor.RepairJSON(out.Content)
	if err != nil {
		return nil, err
	}
	if err := clusterSchema.Validate(obj); err != nil {
		return nil, fmt.Errorf("%w: %v", executor.ErrMalformedResponse, err)
	}

	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("re-encoding cluster reply: %w", err)
	}
	var reply struct {
		Tables []clusterTable `json:"tables"`
	}
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, fmt.Errorf("decoding cluster reply: %w", err)
	}

	sections := make([]domain.Section, 0, len(reply.Tables))
	for i, t := range reply.Tables {
		sec := domain.Section{
			ID:   fmt.Sprintf("cluster_%d", i),
			Type: domain.ParseTableType(strings.ToLower(strings.TrimSpace(t.DataType))),
		}
		if header := toRow(t.Header); !isBlank(header) {
			sec.HeaderRows = []domain.Row{header}
		}
		for _, cells := range t.Data {
			if row := toRow(cells); !isBlank(row) {
				sec.DataRows = append(sec.DataRows, row)
			}
		}
		if sec.RowCount() > 0 {
			sections = append(sections, sec)
		}
	}
	if len(sections) == 0 {
		return nil, ErrNoClusteredTables
	}

	log.Printf("tableClusterer.Cluster: %d grids regrouped into %d tables", len(tables), len(sections))
	return sections, nil
}

func toRow(cells []interface{}) domain.Row {
	row := make(domain.Row, len(cells))
	for i, v := range cells {
		row[i] = cellString(v)
	}
	return row
}

func cellString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

func isBlank(row domain.Row) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}
