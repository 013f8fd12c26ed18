package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/kartoza/aquacheck/internal/quality"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Field is one input on the measurement form.
type Field struct {
	Name  string
	Label string
	Unit  string
	Step  string
	Value string
}

// PageData is passed to the index template.
type PageData struct {
	Title          string
	Version        string
	Fields         []Field
	PredictionText string
	Response       *quality.Envelope
}

var formFields = []Field{
	{Name: quality.ParamPH, Label: "pH", Unit: "0–14", Step: "0.01"},
	{Name: quality.ParamTurbidity, Label: "Turbidity", Unit: "NTU", Step: "0.01"},
	{Name: quality.ParamNitrate, Label: "Nitrate", Unit: "mg/L", Step: "0.01"},
	{Name: quality.ParamLead, Label: "Lead", Unit: "µg/L", Step: "0.001"},
	{Name: quality.ParamOxygen, Label: "Dissolved oxygen", Unit: "mg/L", Step: "0.01"},
}

// views holds the parsed page templates. Parsing happens once at startup so
// a broken template fails New instead of a request.
type views struct {
	page    *template.Template
	version string
}

func newViews(version string) (*views, error) {
	t, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &views{page: t, version: version}, nil
}

// data builds the page data, echoing submitted values back into the form.
func (v *views) data(submitted quality.RawInput, env *quality.Envelope) PageData {
	fields := make([]Field, len(formFields))
	copy(fields, formFields)
	if submitted != nil {
		for i := range fields {
			fields[i].Value, _ = submitted.Get(fields[i].Name)
		}
	}

	d := PageData{
		Title:   "Water Quality Check",
		Version: v.version,
		Fields:  fields,
	}
	if env != nil {
		d.Response = env
		d.PredictionText = env.StatusLine()
	}
	return d
}

// render executes the layout into a buffer first so a template failure can
// still produce a clean 500.
func (v *views) render(w http.ResponseWriter, status int, data PageData) error {
	var buf bytes.Buffer
	if err := v.page.ExecuteTemplate(&buf, "layout", data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
	return nil
}
