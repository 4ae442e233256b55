package render

import (
	"fmt"
	"html/template"
	"io"
	"regexp"
	"strings"

	"scrapbook/internal/domain"
)

var colorRe = regexp.MustCompile(`^#[0-9A-Fa-f]{3,8}$`)

var pageTmpl = template.Must(template.New("page").Funcs(template.FuncMap{
	"style": elementStyle,
	"stars": stars,
}).Parse(`<div class="scrapbook-canvas">
{{- if .Empty}}
<div class="scrapbook-empty">
<h1>{{.Placeholder.Title}}</h1>
{{- range .Placeholder.Hints}}
<p>{{.}}</p>
{{- end}}
</div>
{{- else}}
{{- range .Elements}}
<div class="block block-{{.Type}}{{if .Active}} active{{end}}" data-id="{{.BlockID}}" style="{{style .}}">
{{- if .TapeColor}}<span class="tape" style="background:{{.TapeColor}}"></span>{{end}}
{{- if .Review}}<div class="stars">{{stars .Review.Rating}}</div><p>{{.Body}}</p>
{{- else if .ImageURL}}<img src="{{.ImageURL}}" alt="">
{{- else if .NeedsUpload}}<div class="upload">{{if .Uploading}}Uploading...{{else}}Click to add a photo{{end}}</div>
{{- else if .Path}}<svg viewBox="0 0 24 24"><path d="{{.Path}}"/></svg><span>{{.Body}}</span>
{{- else if .Sticker}}<span class="sticker">{{.Sticker}}</span>
{{- else}}<div class="content">{{.Body}}</div>
{{- end}}
{{- if .UploadError}}<div class="error">{{.UploadError}}</div>{{end}}
</div>
{{- end}}
{{- end}}
</div>
`))

// WriteHTML renders the scene as absolutely positioned divs. User content is escaped.
func WriteHTML(w io.Writer, s Scene) error {
	els := make([]Element, len(s.Elements))
	copy(els, s.Elements)
	for i := range els {
		if !colorRe.MatchString(els[i].TapeColor) {
			els[i].TapeColor = ""
		}
	}
	s.Elements = els
	if err := pageTmpl.Execute(w, s); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	return nil
}

func elementStyle(el Element) template.CSS {
	var sb strings.Builder
	fmt.Fprintf(&sb, "position:absolute;left:%.1fpx;top:%.1fpx;transform:rotate(%.2fdeg);z-index:%d", el.Left, el.Top, el.Rotation, el.ZIndex)
	if el.Width > 0 {
		fmt.Fprintf(&sb, ";width:%.1fpx", el.Width)
	}
	// Only palette fonts reach the stylesheet.
	for _, f := range domain.Fonts {
		if f.Value == el.Font {
			sb.WriteString(";font-family:" + f.Value)
			break
		}
	}
	if el.Active {
		sb.WriteString(";transition:none")
	}
	return template.CSS(sb.String())
}

func stars(n int) string {
	return strings.Repeat("★", n) + strings.Repeat("☆", domain.MaxRating-n)
}
