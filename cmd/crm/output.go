package main

import (
	"encoding/json"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/viper"

	"crmcore/internal/domain"
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(header ...any) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row(header))
	return tw
}

func row(cells ...any) table.Row { return table.Row(cells) }

func printCards(cards []domain.Card) error {
	if viper.GetBool("json") {
		return printJSON(cards)
	}
	tw := newTable("ID", "Name", "Stage", "Order", "Status")
	for _, c := range cards {
		tw.AppendRow(row(c.ID, c.Name, c.StageID, c.Order, c.Status))
	}
	tw.Render()
	return nil
}

func printCard(c domain.Card) error {
	return printCards([]domain.Card{c})
}

func printContact(c domain.Contact) error {
	if viper.GetBool("json") {
		return printJSON(c)
	}
	tw := newTable("ID", "Type", "Name", "Emails", "Merged")
	tw.AppendRow(row(c.ID, c.Type, c.Name, c.Emails, c.MergedIDs))
	tw.Render()
	return nil
}

func printIDs(ids []string) error {
	if viper.GetBool("json") {
		return printJSON(ids)
	}
	tw := newTable("ID")
	for _, id := range ids {
		tw.AppendRow(row(id))
	}
	tw.Render()
	return nil
}
