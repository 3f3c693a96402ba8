package mail

import (
	"bytes"
	"embed"
	"io/fs"
	"net/http"
	"sync"

	"github.com/gofiber/template/html/v2"
)

//go:embed templates/*.html
var templatesFS embed.FS

var (
	engine     *html.Engine
	engineOnce sync.Once
	engineErr  error
)

func templates() (*html.Engine, error) {
	engineOnce.Do(func() {
		sub, err := fs.Sub(templatesFS, "templates")
		if err != nil {
			engineErr = err
			return
		}
		engine = html.NewFileSystem(http.FS(sub), ".html")
		engineErr = engine.Load()
	})
	return engine, engineErr
}

// Render executes the named email template ("receipt" for templates/receipt.html)
func Render(name string, data interface{}) (string, error) {
	e, err := templates()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := e.Render(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ReceiptEmail is the data of templates/receipt.html
type ReceiptEmail struct {
	SocietyName   string
	OwnerName     string
	ReceiptNumber string
	FlatNumber    string
	Month         string
	Amount        string
	PaidAt        string
	TransactionID string
}
