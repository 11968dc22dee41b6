package main

import (
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/ericfisherdev/gitpulse/internal/application"
	"github.com/ericfisherdev/gitpulse/internal/domain/model"
)

// maxTitleWidth truncates long titles in the activity table.
const maxTitleWidth = 72

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	return table
}

func printRepoReports(w io.Writer, reports []application.RepoReport) {
	table := newTable(w, "Repository", "Stage", "Commits", "Pull requests", "Issues", "Reviews", "Took")
	for _, r := range reports {
		stage := string(r.Stage)
		if r.Failed() {
			stage = "failed at " + string(r.FailedAt)
		}

		row := []string{r.Repository, stage}
		for _, kind := range model.ActivityKinds {
			row = append(row, kindCell(r.Kinds[kind]))
		}
		row = append(row, r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String())
		table.Append(row)
	}
	table.Render()
}

// kindCell renders stored rows, with pruned rows in parentheses when any.
func kindCell(kr *application.KindReport) string {
	if kr == nil {
		return "-"
	}
	cell := strconv.Itoa(kr.Stored)
	if kr.Pruned > 0 {
		cell += " (-" + strconv.FormatInt(kr.Pruned, 10) + ")"
	}
	return cell
}

func printRepositories(w io.Writer, repos []model.Repository) {
	table := newTable(w, "Repository", "Added")
	for _, r := range repos {
		table.Append([]string{r.FullName, humanize.Time(r.AddedAt)})
	}
	table.Render()
}

func printActivity(w io.Writer, items []model.ActivityItem, now time.Time) {
	table := newTable(w, "When", "Kind", "Repository", "Author", "Title")
	for _, item := range items {
		kind := string(item.Kind)
		if item.State != "" {
			kind += " (" + string(item.State) + ")"
		}
		table.Append([]string{
			humanize.RelTime(item.Date, now, "ago", "from now"),
			kind,
			item.Repository,
			item.Author,
			truncate(item.Title, maxTitleWidth),
		})
	}
	table.Render()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
