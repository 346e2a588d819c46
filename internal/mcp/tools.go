package mcp

import "github.com/mark3labs/mcp-go/mcp"

var nextToolDef = mcp.NewTool("contact_next",
	mcp.WithDescription("Pick the next contact to reach out to. Contacts you engaged with more often come up sooner; the contact shown last on the surface is skipped when another exists. Increments the picked contact's proposed counter."),
	mcp.WithString("surface", mcp.Description("Surface id (default: \"default\"). Each surface tracks its own last shown contact.")),
	mcp.WithString("last_shown", mcp.Description("Contact id to avoid repeating, overriding the surface's memory.")),
)

var engageToolDef = mcp.NewTool("contact_engage",
	mcp.WithDescription("Record that the user acted on a contact (called, messaged, opened), then pick the next contact for the surface."),
	mcp.WithString("contact_id", mcp.Required(), mcp.Description("Id of the contact the user engaged with.")),
	mcp.WithString("surface", mcp.Description("Surface id (default: \"default\").")),
)

var counterGetToolDef = mcp.NewTool("counter_get",
	mcp.WithDescription("Read a contact's proposed and engaged counters. Unknown contacts report zeros."),
	mcp.WithString("contact_id", mcp.Required(), mcp.Description("Contact id.")),
)

var statsToolDef = mcp.NewTool("counter_stats",
	mcp.WithDescription("List counter records, most engaged first, with display names from the address book."),
	mcp.WithNumber("limit", mcp.Description("Page size (default 20, max 100).")),
	mcp.WithNumber("offset", mcp.Description("Records to skip.")),
)

var exportToolDef = mcp.NewTool("counter_export",
	mcp.WithDescription("Export all counters to a JSONL file in the exports directory."),
	mcp.WithString("path", mcp.Description("Destination .jsonl path (default: <base>/exports/counters-<timestamp>.jsonl).")),
)

var importToolDef = mcp.NewTool("counter_import",
	mcp.WithDescription("Import counters from a JSONL export file."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Source .jsonl path.")),
	mcp.WithString("mode", mcp.Enum("error", "replace", "add"), mcp.Description("Collision handling: error (all-or-nothing, default), replace, add.")),
)
