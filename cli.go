package main

import (
	"os"

	"github.com/integrii/flaggy"
)

var (
	flagHelp        bool
	flagNoColor     bool
	flagNoClearClip bool
	flagSensitive   bool
	flagRegex       bool
	flagFavorites   bool
	flagForce       bool
	flagTag         string
	flagType        string
	flagFolder      string
	flagFile        string
	flagConfig      string
	flagGenLength   int

	argTitle string
	argQuery string
	argField string
	argFile  string
)

var (
	versionCmd = flaggy.NewSubcommand("version")
	createCmd  = flaggy.NewSubcommand("create")
	addCmd     = flaggy.NewSubcommand("add")
	lsCmd      = flaggy.NewSubcommand("ls")
	showCmd    = flaggy.NewSubcommand("show")
	searchCmd  = flaggy.NewSubcommand("search")
	cpCmd      = flaggy.NewSubcommand("cp")
	totpCmd    = flaggy.NewSubcommand("totp")
	rmCmd      = flaggy.NewSubcommand("rm")
	passwdCmd  = flaggy.NewSubcommand("passwd")
	exportCmd  = flaggy.NewSubcommand("export")
	importCmd  = flaggy.NewSubcommand("import")
	genCmd     = flaggy.NewSubcommand("gen")
)

func parseCli() {
	flagGenLength = 24

	parser := flaggy.NewParser("coffre")
	parser.Bool(&flagNoColor, "", "no-color", "Turn off color output")
	parser.Bool(&flagNoClearClip, "", "no-clear-clip", "Do not clear clipboard after copying")
	parser.Bool(&flagHelp, "h", "help", "Show help")
	parser.String(&flagFile, "f", "file", "The store to open (can be set by $COFFRE)")
	parser.String(&flagConfig, "c", "config", "Configuration file path")

	versionCmd.Description = "print version and exit"
	createCmd.Description = "create a new credential store"
	addCmd.Description = "add a credential interactively"
	lsCmd.Description = "list credentials"
	showCmd.Description = "show one credential"
	searchCmd.Description = "rank credentials against a query"
	cpCmd.Description = "copy a field value to the clipboard"
	totpCmd.Description = "copy the current one-time code to the clipboard"
	rmCmd.Description = "delete a credential"
	passwdCmd.Description = "change the master password"
	exportCmd.Description = "export all credentials as json"
	importCmd.Description = "import credentials from json"
	genCmd.Description = "generate a password"

	addCmd.AddPositionalValue(&argTitle, "title", 1, true, "Title of the new credential")
	lsCmd.AddPositionalValue(&argQuery, "query", 1, false, "Optional text filter")
	showCmd.AddPositionalValue(&argQuery, "query", 1, true, "Credential id or title text")
	showCmd.Bool(&flagSensitive, "s", "sensitive", "Reveal sensitive field values")
	searchCmd.AddPositionalValue(&argQuery, "query", 1, true, "Search text")
	searchCmd.Bool(&flagRegex, "r", "regex", "Interpret the query as a regular expression")
	searchCmd.Bool(&flagSensitive, "s", "sensitive", "Search inside sensitive field values")
	searchCmd.Bool(&flagFavorites, "", "favorites", "Only favorites")
	searchCmd.String(&flagTag, "t", "tag", "Require a tag (comma separated for several)")
	searchCmd.String(&flagType, "", "type", "Restrict to a credential type")
	searchCmd.String(&flagFolder, "", "folder", "Restrict to a folder subtree")
	cpCmd.AddPositionalValue(&argQuery, "query", 1, true, "Credential id or title text")
	cpCmd.AddPositionalValue(&argField, "field", 2, true, "Field name to copy (pass, user, ...)")
	totpCmd.AddPositionalValue(&argQuery, "query", 1, true, "Credential id or title text")
	rmCmd.AddPositionalValue(&argQuery, "query", 1, true, "Credential id or title text")
	rmCmd.Bool(&flagForce, "y", "yes", "Skip the confirmation prompt")
	exportCmd.AddPositionalValue(&argFile, "out", 1, true, "Output file, - for stdout")
	importCmd.AddPositionalValue(&argFile, "in", 1, true, "Input file, - for stdin")
	genCmd.Int(&flagGenLength, "n", "length", "Password length")

	parser.AdditionalHelpAppend = "coffre respects $COFFRE and COFFRE_* config overrides"

	parser.ShowHelpWithHFlag = false
	parser.ShowHelpOnUnexpected = false

	parser.DisableShowVersionWithVersion()
	if err := parser.SetHelpTemplate(helpTemplate); err != nil {
		// This should never occur
		panic(err)
	}

	for _, cmd := range []*flaggy.Subcommand{
		versionCmd, createCmd, addCmd, lsCmd, showCmd, searchCmd,
		cpCmd, totpCmd, rmCmd, passwdCmd, exportCmd, importCmd, genCmd,
	} {
		parser.AttachSubcommand(cmd, 1)
	}
	parser.Parse()

	if len(flagFile) == 0 {
		flagFile = os.Getenv("COFFRE")
	}

	if flagHelp {
		parser.ShowHelp()
		os.Exit(0)
	}
}

var helpTemplate = `Usage:
  {{.CommandName}} [flags]{{if .Subcommands}} [command]{{end}}
{{- if .Subcommands}}

Commands:
  {{range .Subcommands -}}
  {{.LongName}}
  {{end -}}
{{- end}}
{{- if .Flags}}
Flags:
  {{- range .Flags}}
  {{if .ShortName}}-{{.ShortName}}{{if .LongName}}, {{else}}  {{end}}{{else}}    {{end}}{{printf "--%-15s" .LongName}}
  {{- if .Description}} {{.Description}}{{end}}
  {{- if and (.DefaultValue) (not (eq "false" .DefaultValue))}} ({{.DefaultValue}}){{end}}
  {{- end -}}
{{- end}}{{if .AppendMessage}}

{{.AppendMessage}}
{{- end}}
`
