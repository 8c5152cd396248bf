package email

import (
	"bytes"
	"html/template"
	"time"
)

// BaseEmailData is the layout around every email body.
type BaseEmailData struct {
	Content   template.HTML
	Subject   string
	Preheader string
	Year      int
}

// Table layout and inline-friendly styles; most mail clients ignore flexbox.
var baseEmailTemplate = template.Must(template.New("base").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Subject}}</title>
<style>
  body { margin: 0; padding: 0; background: #f2eefa; font-family: -apple-system, 'Segoe UI', Roboto, Arial, sans-serif; color: #2b2b2b; line-height: 1.55; }
  .frame { width: 100%; background: #f2eefa; padding: 24px 0; }
  .card { width: 600px; max-width: 100%; background: #ffffff; border-radius: 10px; overflow: hidden; }
  .masthead { background: #6C4AB6; padding: 22px 28px; color: #ffffff; }
  .masthead .name { font-size: 22px; font-weight: 800; letter-spacing: 0.5px; }
  .masthead .tag { font-size: 12px; opacity: 0.85; }
  .masthead a { color: #ffffff; font-size: 13px; font-weight: 600; text-decoration: none; }
  .body { padding: 28px 24px; }
  .foot { padding: 20px 24px 26px; font-size: 12px; color: #8a8494; text-align: center; }
  .foot a { color: #6C4AB6; text-decoration: none; }
  .preheader { display: none; max-height: 0; overflow: hidden; opacity: 0; }
  @media only screen and (max-width: 620px) {
    .body { padding: 20px 14px; }
    .masthead { padding: 18px 16px; }
  }
</style>
</head>
<body>
{{if .Preheader}}<div class="preheader">{{.Preheader}}</div>{{end}}
<table role="presentation" class="frame" cellpadding="0" cellspacing="0" border="0">
  <tr><td align="center">
    <table role="presentation" class="card" cellpadding="0" cellspacing="0" border="0">
      <tr><td class="masthead">
        <table role="presentation" width="100%" cellpadding="0" cellspacing="0" border="0"><tr>
          <td>
            <div class="name">Pipcasso</div>
            <div class="tag">Dice mosaics from your photos</div>
          </td>
          <td align="right"><a href="https://pipcasso.com/create">Make another</a></td>
        </tr></table>
      </td></tr>
      <tr><td class="body">{{.Content}}</td></tr>
      <tr><td class="foot">
        Questions about an order? <a href="mailto:support@pipcasso.com">support@pipcasso.com</a><br>
        &copy; {{.Year}} Pipcasso &middot; <a href="https://pipcasso.com">pipcasso.com</a>
      </td></tr>
    </table>
  </td></tr>
</table>
</body>
</html>
`))

// WrapEmailContent places rendered content inside the Pipcasso layout.
func WrapEmailContent(content string, subject string) (string, error) {
	data := BaseEmailData{
		Content:   template.HTML(content),
		Subject:   subject,
		Preheader: subject,
		Year:      time.Now().Year(),
	}

	var result bytes.Buffer
	if err := baseEmailTemplate.Execute(&result, data); err != nil {
		return "", err
	}
	return result.String(), nil
}
