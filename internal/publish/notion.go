package publish

import (
	"context"
	"fmt"
	"strings"

	"github.com/mwjiang/sectorflow/pkg/config"
	"github.com/mwjiang/sectorflow/pkg/httputil"
	"github.com/mwjiang/sectorflow/pkg/logger"
)

const notionVersion = "2022-06-28"

// Notion can take at most this many children per page create request.
const notionMaxBlocks = 100

// Notion publishes reports as child pages of a configured parent page.
// When a database ID is also configured, a summary row is appended to
// it for each published report. Chart files are ignored; the public API
// cannot upload local images.
type Notion struct {
	http         *httputil.Client
	logger       *logger.Logger
	baseURL      string
	apiKey       string
	parentPageID string
	databaseID   string
}

func NewNotion(cfg *config.Config, client *httputil.Client, log *logger.Logger) *Notion {
	return &Notion{
		http:         client,
		logger:       log.WithField("publisher", "notion"),
		baseURL:      cfg.Notion.BaseURL,
		apiKey:       cfg.Notion.APIKey,
		parentPageID: cfg.Notion.ParentPageID,
		databaseID:   cfg.Notion.DatabaseID,
	}
}

func (n *Notion) Name() string { return "notion" }

func (n *Notion) headers() map[string]string {
	return map[string]string{
		"Authorization":  "Bearer " + n.apiKey,
		"Notion-Version": notionVersion,
	}
}

type notionPageResponse struct {
	Object  string `json:"object"` // "page" or "error"
	ID      string `json:"id"`
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (n *Notion) Publish(ctx context.Context, title, markdown string, chartFiles []string) error {
	blocks := markdownToBlocks(markdown)
	first := blocks
	var overflow []map[string]interface{}
	if len(blocks) > notionMaxBlocks {
		first, overflow = blocks[:notionMaxBlocks], blocks[notionMaxBlocks:]
	}

	page := map[string]interface{}{
		"parent": map[string]interface{}{"page_id": n.parentPageID},
		"properties": map[string]interface{}{
			"title": map[string]interface{}{
				"title": richText(title),
			},
		},
		"children": first,
	}

	resp, err := n.http.PostJSONWithHeaders(ctx, n.baseURL+"/pages", page, n.headers())
	if err != nil {
		return fmt.Errorf("notion page create: %w", err)
	}
	var decoded notionPageResponse
	if err := httputil.DecodeJSON(resp, &decoded); err != nil {
		return fmt.Errorf("notion page create: %w", err)
	}
	if decoded.Object == "error" {
		return fmt.Errorf("notion page create rejected: %s (%s)", decoded.Message, decoded.Code)
	}
	n.logger.WithField("page_id", decoded.ID).Info("report page created")

	if err := n.appendBlocks(ctx, decoded.ID, overflow); err != nil {
		return fmt.Errorf("notion append blocks: %w", err)
	}

	if n.databaseID != "" {
		if err := n.appendDatabaseRow(ctx, title); err != nil {
			// The page itself went out; the index row is best-effort.
			n.logger.WithError(err).Warn("database row append failed")
		}
	}
	return nil
}

// appendBlocks pushes blocks beyond the page-create cap onto the page,
// at most notionMaxBlocks per request.
func (n *Notion) appendBlocks(ctx context.Context, pageID string, blocks []map[string]interface{}) error {
	for len(blocks) > 0 {
		chunk := blocks
		if len(chunk) > notionMaxBlocks {
			chunk = chunk[:notionMaxBlocks]
		}
		blocks = blocks[len(chunk):]

		body := map[string]interface{}{"children": chunk}
		resp, err := n.http.PatchJSONWithHeaders(ctx, n.baseURL+"/blocks/"+pageID+"/children", body, n.headers())
		if err != nil {
			return err
		}
		var decoded notionPageResponse
		if err := httputil.DecodeJSON(resp, &decoded); err != nil {
			return err
		}
		if decoded.Object == "error" {
			return fmt.Errorf("rejected: %s (%s)", decoded.Message, decoded.Code)
		}
	}
	return nil
}

func (n *Notion) appendDatabaseRow(ctx context.Context, title string) error {
	row := map[string]interface{}{
		"parent": map[string]interface{}{"database_id": n.databaseID},
		"properties": map[string]interface{}{
			"Name": map[string]interface{}{
				"title": richText(title),
			},
		},
	}

	resp, err := n.http.PostJSONWithHeaders(ctx, n.baseURL+"/pages", row, n.headers())
	if err != nil {
		return err
	}
	var decoded notionPageResponse
	if err := httputil.DecodeJSON(resp, &decoded); err != nil {
		return err
	}
	if decoded.Object == "error" {
		return fmt.Errorf("rejected: %s (%s)", decoded.Message, decoded.Code)
	}
	return nil
}

// markdownToBlocks converts the subset of Markdown the reporter emits
// into Notion block objects: headings, bullets, tables and paragraphs.
func markdownToBlocks(markdown string) []map[string]interface{} {
	var blocks []map[string]interface{}
	lines := strings.Split(markdown, "\n")

	for i := 0; i < len(lines); i++ {
		line := strings.TrimRight(lines[i], " ")
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			continue

		case strings.HasPrefix(trimmed, "### "):
			blocks = append(blocks, headingBlock("heading_3", strings.TrimPrefix(trimmed, "### ")))
		case strings.HasPrefix(trimmed, "## "):
			blocks = append(blocks, headingBlock("heading_2", strings.TrimPrefix(trimmed, "## ")))
		case strings.HasPrefix(trimmed, "# "):
			blocks = append(blocks, headingBlock("heading_1", strings.TrimPrefix(trimmed, "# ")))

		case strings.HasPrefix(trimmed, "- "):
			blocks = append(blocks, map[string]interface{}{
				"object": "block",
				"type":   "bulleted_list_item",
				"bulleted_list_item": map[string]interface{}{
					"rich_text": richText(strings.TrimPrefix(trimmed, "- ")),
				},
			})

		case strings.HasPrefix(trimmed, "|"):
			var tableLines []string
			for i < len(lines) && strings.HasPrefix(strings.TrimSpace(lines[i]), "|") {
				tableLines = append(tableLines, strings.TrimSpace(lines[i]))
				i++
			}
			i--
			if tb := tableBlock(tableLines); tb != nil {
				blocks = append(blocks, tb)
			}

		default:
			blocks = append(blocks, map[string]interface{}{
				"object": "block",
				"type":   "paragraph",
				"paragraph": map[string]interface{}{
					"rich_text": richText(plainMarkdown(trimmed)),
				},
			})
		}
	}

	return blocks
}

func headingBlock(kind, text string) map[string]interface{} {
	return map[string]interface{}{
		"object": "block",
		"type":   kind,
		kind: map[string]interface{}{
			"rich_text": richText(plainMarkdown(text)),
		},
	}
}

// tableBlock builds a Notion table from pipe-delimited rows, dropping
// the separator row.
func tableBlock(lines []string) map[string]interface{} {
	var rows [][]string
	for _, line := range lines {
		cells := splitTableRow(line)
		if len(cells) == 0 || isSeparatorRow(cells) {
			continue
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return nil
	}

	width := len(rows[0])
	var children []map[string]interface{}
	for _, cells := range rows {
		for len(cells) < width {
			cells = append(cells, "")
		}
		var rt [][]map[string]interface{}
		for _, cell := range cells[:width] {
			rt = append(rt, richText(cell))
		}
		children = append(children, map[string]interface{}{
			"object": "block",
			"type":   "table_row",
			"table_row": map[string]interface{}{
				"cells": rt,
			},
		})
	}

	return map[string]interface{}{
		"object": "block",
		"type":   "table",
		"table": map[string]interface{}{
			"table_width":       width,
			"has_column_header": true,
			"children":          children,
		},
	}
}

func splitTableRow(line string) []string {
	line = strings.Trim(line, "|")
	parts := strings.Split(line, "|")
	cells := make([]string, 0, len(parts))
	for _, p := range parts {
		cells = append(cells, strings.TrimSpace(p))
	}
	return cells
}

func isSeparatorRow(cells []string) bool {
	for _, c := range cells {
		if strings.Trim(c, "-: ") != "" {
			return false
		}
	}
	return true
}

// plainMarkdown strips bold markers; Notion rich text carries no
// inline Markdown.
func plainMarkdown(s string) string {
	return strings.ReplaceAll(s, "**", "")
}

func richText(content string) []map[string]interface{} {
	return []map[string]interface{}{{
		"type": "text",
		"text": map[string]interface{}{"content": content},
	}}
}
