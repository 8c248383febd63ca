package widget

import (
	"strings"

	gomponents "maragu.dev/gomponents"
	html "maragu.dev/gomponents/html"

	"fireant/dataset"
	"fireant/frame"
)

// HTML renders the table layout as an HTML table fragment.
type HTML struct {
	Table
	// Class is set on the table element.
	Class string
}

// NewHTML builds an HTML widget.
func NewHTML(metrics ...dataset.Metric) (*HTML, error) {
	b, err := newBase("html", metrics)
	if err != nil {
		return nil, err
	}
	return &HTML{Table: Table{base: b}}, nil
}

func (w *HTML) Transform(f *frame.Frame, ctx Context) (interface{}, error) {
	var sb strings.Builder
	if err := tableNode(w.table(f, ctx.Plan), w.Class).Render(&sb); err != nil {
		return nil, err
	}
	return sb.String(), nil
}

func tableNode(t *TableResult, class string) gomponents.Node {
	headerCols := make([]gomponents.Node, 0, len(t.Columns))
	for _, c := range t.Columns {
		headerCols = append(headerCols, html.Th(gomponents.Text(c.Label)))
	}

	rows := make([]gomponents.Node, 0, len(t.Rows))
	for _, row := range t.Rows {
		cells := make([]gomponents.Node, 0, len(row))
		for i, c := range row {
			content := gomponents.Node(gomponents.Text(c.Display))
			if c.Link != "" {
				content = html.A(html.Href(c.Link), gomponents.Text(c.Display))
			}
			if t.Columns[i].Dimension {
				cells = append(cells, html.Th(content))
			} else {
				cells = append(cells, html.Td(content))
			}
		}
		rows = append(rows, html.Tr(gomponents.Group(cells)))
	}

	return html.Table(
		gomponents.If(class != "", html.Class(class)),
		html.THead(html.Tr(gomponents.Group(headerCols))),
		html.TBody(gomponents.Group(rows)),
	)
}
