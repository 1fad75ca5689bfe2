package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
	"github.com/vedran77/xchat/pkg/domain"
)

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	return table
}

func renderChannels(w io.Writer, channels []domain.Channel) {
	if len(channels) == 0 {
		fmt.Fprintln(w, color.Gray.Sprint("no channels"))
		return
	}
	table := newTable(w, []string{"ID", "Name", "Members", "Created"})
	for _, ch := range channels {
		name := "-"
		if ch.Name != nil {
			name = ch.Name.String()
		}
		table.Append([]string{
			ch.ID.String(),
			name,
			strings.Join(domain.NameStrings(ch.Members), ", "),
			ch.CreatedAt.Local().Format(time.DateTime),
		})
	}
	table.Render()
}

func renderMessages(w io.Writer, msgs []domain.Message) {
	if len(msgs) == 0 {
		fmt.Fprintln(w, color.Gray.Sprint("no messages"))
		return
	}
	table := newTable(w, []string{"Sent", "From", "Content"})
	for _, m := range msgs {
		table.Append([]string{
			m.SentAt.Local().Format(time.DateTime),
			color.Cyan.Sprint(m.Sender.String()),
			describeContent(m.Content),
		})
	}
	table.Render()
}

func describeContent(c domain.Content) string {
	switch c := c.(type) {
	case domain.TextContent:
		return c.Text
	case domain.FileContent:
		return color.Yellow.Sprintf("[file] %s (%s)", c.Name, humanSize(c.Size))
	default:
		panic(fmt.Sprintf("unhandled content %T", c))
	}
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// progressBar redraws one line on w as upload progress arrives.
type progressBar struct {
	w    io.Writer
	name string
	last int
}

func newProgressBar(w io.Writer, name string) *progressBar {
	return &progressBar{w: w, name: name, last: -1}
}

func (b *progressBar) update(fraction float64) {
	percent := int(fraction * 100)
	if percent == b.last {
		return
	}
	b.last = percent
	filled := percent / 5
	fmt.Fprintf(b.w, "\r%s [%s%s] %3d%%", b.name, strings.Repeat("#", filled), strings.Repeat(".", 20-filled), percent)
}

func (b *progressBar) done(ok bool) {
	if b.last < 0 {
		return
	}
	if ok {
		fmt.Fprintln(b.w, color.Green.Sprint(" done"))
		return
	}
	fmt.Fprintln(b.w, color.Red.Sprint(" failed"))
}
