package review

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// statusOrder lists statuses worst-first for rendered output
var statusOrder = []RuleStatus{
	StatusFail,
	StatusNeedsReview,
	StatusWarn,
	StatusPass,
	StatusNotApplicable,
}

// EncodeJSON renders the report as indented JSON. Map keys are sorted by the
// encoder, so two identical runs produce byte-identical documents (modulo
// run id and timestamp).
func (r RunReport) EncodeJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// EncodeYAML renders the report as YAML
func (r RunReport) EncodeYAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteMarkdown renders a human-readable digest: the totals histogram first,
// then one section per rule in run order.
func (r RunReport) WriteMarkdown(w io.Writer) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# Balance Review %s\n\n", r.PeriodEnd)
	fmt.Fprintf(&buf, "Generated at: %s\n\n", r.GeneratedAt.Format(time.RFC3339))
	buf.WriteString("## Totals\n")
	for _, status := range statusOrder {
		if count, ok := r.Totals[status]; ok {
			fmt.Fprintf(&buf, "- %s: %d\n", status, count)
		}
	}
	buf.WriteString("\n## Results\n")
	for _, res := range r.Results {
		buf.WriteString("\n")
		fmt.Fprintf(&buf, "### %s - %s\n", res.RuleID, res.Status)
		buf.WriteString(res.RuleTitle + "\n")
		if res.Summary != "" {
			fmt.Fprintf(&buf, "- Summary: %s\n", res.Summary)
		}
		if res.BestPracticesReference != "" {
			fmt.Fprintf(&buf, "- Reference: %s\n", res.BestPracticesReference)
		}
		if len(res.Sources) > 0 {
			fmt.Fprintf(&buf, "- Sources: %s\n", strings.Join(res.Sources, ", "))
		}
		if res.HumanAction != "" {
			fmt.Fprintf(&buf, "- Action: %s\n", res.HumanAction)
		}
		if len(res.Details) > 0 {
			buf.WriteString("- Details:\n")
			for _, detail := range res.Details {
				fmt.Fprintf(&buf, "  - %s: %s | %s\n", detail.Key, detail.Message, formatDetailValues(detail.Values))
			}
		}
		if len(res.EvidenceUsed) > 0 {
			buf.WriteString("- Evidence:\n")
			for _, ev := range res.EvidenceUsed {
				fmt.Fprintf(&buf, "  - %s (amount=%s, as_of=%s, source=%s)\n",
					ev.EvidenceType, formatOptionalAmount(ev.Amount), formatOptionalDate(ev.AsOfDate), ev.Source)
			}
		}
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// formatDetailValues renders detail values as compact JSON so map output is
// sorted and stable.
func formatDetailValues(values map[string]any) string {
	if len(values) == 0 {
		return "{}"
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return fmt.Sprintf("%v", values)
	}
	return string(raw)
}

func formatOptionalAmount(a *decimal.Decimal) string {
	if a == nil {
		return "none"
	}
	return DecimalString(*a)
}

func formatOptionalDate(d *Date) string {
	if d == nil || d.IsZero() {
		return "none"
	}
	return d.String()
}
