package render

import (
	"bytes"
	"html/template"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/choropleth-cli/internal/model"
)

// DefaultPopup shows the area name, code and value.
const DefaultPopup = `<strong>{{.Name}}</strong> ({{.Code}})<br>{{if .Label}}{{.Label}}: {{end}}{{.ValueText}}`

// PopupData is the value a popup template is executed against.
type PopupData struct {
	Code      string
	Name      string
	Label     string
	Value     *float64
	ValueText string
	Bin       model.Bin
	Color     string
}

// Popup renders feature popups from an html/template source.
type Popup struct {
	tmpl *template.Template
}

// ParsePopup compiles src. An empty src uses DefaultPopup.
func ParsePopup(src string) (*Popup, error) {
	if src == "" {
		src = DefaultPopup
	}
	tmpl, err := template.New("popup").Option("missingkey=error").Parse(src)
	if err != nil {
		return nil, eris.Wrap(err, "render: parse popup template")
	}
	return &Popup{tmpl: tmpl}, nil
}

// Render executes the template for one feature.
func (p *Popup) Render(d PopupData) (string, error) {
	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, d); err != nil {
		return "", eris.Wrapf(err, "render: popup for %s", d.Code)
	}
	return buf.String(), nil
}

// FormatValue renders a value for display; nil is "No data".
func FormatValue(v *float64) string {
	if v == nil {
		return "No data"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
