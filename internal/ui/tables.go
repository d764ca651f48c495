package ui

import (
	"fmt"
	"strconv"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/openexpoota/ota/internal/api"
)

func (p *Printer) table(header []string, rows [][]string) {
	table := tablewriter.NewWriter(p.Out)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.AppendBulk(rows)
	table.SetBorder(false)
	table.Render()
}

func since(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

// Apps renders apps as a table, or as data in json and yaml mode.
func (p *Printer) Apps(apps []api.App) error {
	if apps == nil {
		apps = []api.App{}
	}
	if ok, err := p.Data(apps); ok {
		return err
	}
	if len(apps) == 0 {
		p.Warnf("No apps found. Create one with 'ota init'.")
		return nil
	}

	rows := make([][]string, 0, len(apps))
	for _, a := range apps {
		rows = append(rows, []string{
			strconv.FormatInt(a.ID, 10),
			a.Name,
			a.Slug,
			a.Description,
			since(a.CreatedAt),
		})
	}
	p.table([]string{"ID", "Name", "Slug", "Description", "Created"}, rows)
	return nil
}

// Updates renders the updates of app as a table, or as data in json and yaml
// mode.
func (p *Printer) Updates(app *api.App, updates []api.Update) error {
	if updates == nil {
		updates = []api.Update{}
	}
	if ok, err := p.Data(updates); ok {
		return err
	}
	if len(updates) == 0 {
		p.Warnf("No updates found for %s. Publish one with 'ota publish'.", app.Name)
		return nil
	}

	rows := make([][]string, 0, len(updates))
	for _, u := range updates {
		rollback := ""
		if u.IsRollback {
			rollback = "yes"
		}
		rows = append(rows, []string{
			strconv.FormatInt(u.ID, 10),
			u.Version,
			string(u.Channel),
			u.RuntimeVersion,
			rollback,
			since(u.CreatedAt),
		})
	}
	p.Heading(fmt.Sprintf("Updates for %s (%s)", app.Name, app.Slug))
	p.table([]string{"ID", "Version", "Channel", "Runtime", "Rollback", "Published"}, rows)
	return nil
}

// Size formats a byte count for status lines.
func Size(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}
