package api

import (
	"fmt"
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v5"

	"github.com/kgee-io/kgee/pkg/session"
)

// exportResearchHandler handles GET /api/v1/research/deep/:id/export.
// format=markdown streams a deterministic markdown document; format=pdf is
// a defined endpoint that is not implemented.
func (s *Server) exportResearchHandler(c *echo.Context) error {
	id := c.Param("id")
	sess, ok := s.sessions.Get(id)
	if !ok {
		return notFound(id)
	}

	format := c.QueryParam("format")
	if format == "" {
		format = "markdown"
	}
	includeSources := c.QueryParam("include_sources") != "false"
	includeIntermediate := c.QueryParam("include_intermediate") == "true"

	switch format {
	case "markdown":
		markdown := buildMarkdown(sess.Snapshot(), includeSources, includeIntermediate)
		c.Response().Header().Set(echo.HeaderContentDisposition,
			fmt.Sprintf("attachment; filename=research_%s.md", id))
		return c.Blob(http.StatusOK, "text/markdown", []byte(markdown))
	case "pdf":
		return echo.NewHTTPError(http.StatusNotImplemented, "PDF export not yet implemented")
	default:
		return echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("Invalid format: %s. Use 'markdown' or 'pdf'", format))
	}
}

// buildMarkdown renders the export document. The final answer appears
// verbatim and every source is listed exactly once.
func buildMarkdown(snap session.Snapshot, includeSources, includeIntermediate bool) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Deep Research: %s\n\n", snap.Query)
	fmt.Fprintf(&b, "**Research ID:** `%s`\n", snap.ID)
	fmt.Fprintf(&b, "**Status:** %s\n", snap.Status)
	fmt.Fprintf(&b, "**Created:** %s\n\n", snap.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))

	b.WriteString("## Final Answer\n\n")
	if snap.State.Synthesis != "" {
		b.WriteString(snap.State.Synthesis)
	} else {
		b.WriteString("No answer available yet.")
	}
	b.WriteString("\n")

	if includeIntermediate {
		answers := buildIntermediateAnswers(snap.State)
		if len(answers) > 0 {
			b.WriteString("\n## Intermediate Findings\n")
			for _, ia := range answers {
				fmt.Fprintf(&b, "\n### %s\n\n", ia.SubQuestion)
				fmt.Fprintf(&b, "**Confidence:** %.2f%%\n", ia.Confidence*100)
				fmt.Fprintf(&b, "**Contexts:** %d\n\n", ia.ContextsCount)
				b.WriteString(ia.Answer)
				b.WriteString("\n")
			}
		}
	}

	if includeSources {
		sources := buildSources(snap.State.AllContexts)
		if len(sources) > 0 {
			b.WriteString("\n## Sources\n")
			for idx, source := range sources {
				fmt.Fprintf(&b, "\n**[%d]** _%s_ (Score: %.3f)\n\n", idx+1, source.SourceType, source.Score)
				text := source.Text
				if len(text) > 500 {
					text = text[:500] + "..."
				}
				b.WriteString(text)
				b.WriteString("\n")
			}
		}
	}

	return b.String()
}
