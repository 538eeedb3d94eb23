package report

import (
	"encoding/json"
	"fmt"
	"time"
)

// SchemaVersion identifies the report content layout. Bump only on breaking
// changes to the block set or section shape.
const SchemaVersion = 1

// Block type tags. The set is closed: unmarshalling rejects anything else.
const (
	BlockStatCard   = "stat_card"
	BlockBarChart   = "bar_chart"
	BlockLineChart  = "line_chart"
	BlockBulletList = "bullet_list"
	BlockCallout    = "callout"
	BlockTable      = "table"
	BlockQuestList  = "quest_list"
	BlockMarkdown   = "markdown"
)

// Block is one renderable unit inside a section. Implementations are the
// only valid members of the tagged union.
type Block interface {
	BlockType() string
}

type StatCardBlock struct {
	Label string  `json:"label"`
	Value string  `json:"value"`
	Delta *string `json:"delta,omitempty"`
}

func (StatCardBlock) BlockType() string { return BlockStatCard }

type ChartSeries struct {
	Name   string     `json:"name"`
	Points []*float64 `json:"points"`
}

type BarChartBlock struct {
	Title  string   `json:"title"`
	Labels []string `json:"labels"`
	Values []int    `json:"values"`
}

func (BarChartBlock) BlockType() string { return BlockBarChart }

type LineChartBlock struct {
	Title  string        `json:"title"`
	Labels []string      `json:"labels"`
	Series []ChartSeries `json:"series"`
}

func (LineChartBlock) BlockType() string { return BlockLineChart }

type BulletListBlock struct {
	Title string   `json:"title,omitempty"`
	Items []string `json:"items"`
}

func (BulletListBlock) BlockType() string { return BlockBulletList }

type CalloutBlock struct {
	Tone string `json:"tone"` // info, warning, success
	Text string `json:"text"`
}

func (CalloutBlock) BlockType() string { return BlockCallout }

type TableBlock struct {
	Title   string     `json:"title,omitempty"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

func (TableBlock) BlockType() string { return BlockTable }

type QuestListBlock struct {
	Quests []Quest `json:"quests"`
}

func (QuestListBlock) BlockType() string { return BlockQuestList }

type MarkdownBlock struct {
	Text string `json:"text"`
}

func (MarkdownBlock) BlockType() string { return BlockMarkdown }

// blockEnvelope is the wire shape: the tag plus the flattened payload.
type blockEnvelope struct {
	Type string `json:"type"`
}

// Blocks is a slice of the tagged union with custom JSON round-tripping.
type Blocks []Block

func (bs Blocks) MarshalJSON() ([]byte, error) {
	raw := make([]json.RawMessage, 0, len(bs))
	for _, b := range bs {
		payload, err := json.Marshal(b)
		if err != nil {
			return nil, err
		}
		// Inject the tag alongside the payload fields.
		var m map[string]json.RawMessage
		if err := json.Unmarshal(payload, &m); err != nil {
			return nil, err
		}
		m["type"] = json.RawMessage(fmt.Sprintf("%q", b.BlockType()))
		enc, err := json.Marshal(m)
		if err != nil {
			return nil, err
		}
		raw = append(raw, enc)
	}
	return json.Marshal(raw)
}

func (bs *Blocks) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	out := make(Blocks, 0, len(raws))
	for _, raw := range raws {
		var env blockEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return err
		}
		block, err := decodeBlock(env.Type, raw)
		if err != nil {
			return err
		}
		out = append(out, block)
	}
	*bs = out
	return nil
}

func decodeBlock(typ string, raw json.RawMessage) (Block, error) {
	switch typ {
	case BlockStatCard:
		var b StatCardBlock
		return b, json.Unmarshal(raw, &b)
	case BlockBarChart:
		var b BarChartBlock
		return b, json.Unmarshal(raw, &b)
	case BlockLineChart:
		var b LineChartBlock
		return b, json.Unmarshal(raw, &b)
	case BlockBulletList:
		var b BulletListBlock
		return b, json.Unmarshal(raw, &b)
	case BlockCallout:
		var b CalloutBlock
		return b, json.Unmarshal(raw, &b)
	case BlockTable:
		var b TableBlock
		return b, json.Unmarshal(raw, &b)
	case BlockQuestList:
		var b QuestListBlock
		return b, json.Unmarshal(raw, &b)
	case BlockMarkdown:
		var b MarkdownBlock
		return b, json.Unmarshal(raw, &b)
	default:
		return nil, fmt.Errorf("unknown block type %q", typ)
	}
}

// Section is a titled group of blocks; narrative is the only field the AI
// pass may replace.
type Section struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Narrative string `json:"narrative,omitempty"`
	Blocks    Blocks `json:"blocks"`
}

// Dashboard is the at-a-glance header of a report.
type Dashboard struct {
	Signature        []string      `json:"signature"`
	ExecutiveSummary string        `json:"executive_summary"`
	Fortunes         FortuneCounts `json:"fortunes"`
}

// FutureContext carries forward-looking hints derived from this period.
type FutureContext struct {
	WatchFor  []string `json:"watch_for"`
	NextSteps []string `json:"next_steps"`
}

// ReportModel is the full content stored (encrypted) in a report row.
type ReportModel struct {
	SchemaVersion int           `json:"schema_version"`
	ReportType    string        `json:"report_type"`
	PeriodStart   string        `json:"period_start"`
	PeriodEnd     string        `json:"period_end"`
	GeneratedAt   time.Time     `json:"generated_at"`
	Title         string        `json:"title"`
	Dashboard     Dashboard     `json:"dashboard"`
	Sections      []Section     `json:"sections"`
	Patterns      []Pattern     `json:"patterns"`
	Quests        []Quest       `json:"quests"`
	Future        FutureContext `json:"future_context"`
	Rollup        *WeeklyRollup `json:"rollup,omitempty"`
	RollupInputs  *RollupInputs `json:"rollup_inputs,omitempty"`
	AINarrative   bool          `json:"ai_narrative"`
}

// Decode parses stored report content.
func Decode(data []byte) (*ReportModel, error) {
	var m ReportModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode report content: %w", err)
	}
	if m.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("unsupported report schema version %d", m.SchemaVersion)
	}
	return &m, nil
}

// Encode serializes report content for storage.
func (m *ReportModel) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// SectionByID returns a pointer into the model's section slice, or nil.
func (m *ReportModel) SectionByID(id string) *Section {
	for i := range m.Sections {
		if m.Sections[i].ID == id {
			return &m.Sections[i]
		}
	}
	return nil
}
