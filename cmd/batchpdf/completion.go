package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	flag "github.com/spf13/pflag"
)

// Shell represents a supported shell for completion generation.
type Shell string

// Supported shells for completion.
const (
	ShellBash       Shell = "bash"
	ShellZsh        Shell = "zsh"
	ShellFish       Shell = "fish"
	ShellPowerShell Shell = "powershell"
)

var shells = []Shell{ShellBash, ShellZsh, ShellFish, ShellPowerShell}

// ErrUnsupportedShell is returned when an unknown shell is requested.
var ErrUnsupportedShell = errors.New("unsupported shell")

// flagType represents the completion type for a flag.
type flagType int

const (
	flagString flagType = iota // default
	flagBool
	flagInt
	flagEnum // has predefined values
	flagFile // file with glob pattern
	flagDir  // directory
)

// flagDef describes a flag for completion purposes.
type flagDef struct {
	Long       string   // --target-folder
	Short      string   // -t (empty if none)
	Type       flagType // completion type
	Desc       string   // help text
	Values     []string // for enum flags
	FileGlob   string   // for file flags
	Repeatable bool     // may be given more than once
}

// takesValue reports whether the flag consumes the next word.
func (f flagDef) takesValue() bool { return f.Type != flagBool }

// commandDef describes a command for completion.
type commandDef struct {
	Name     string
	Desc     string
	Flags    []flagDef
	TakesDir bool     // accepts a folder argument
	Args     []string // fixed positional values
}

// completionMeta holds completion hints the FlagSet cannot express.
// Flag names, types and descriptions come from the FlagSet.
type completionMeta struct {
	Values   []string // enum values
	FileGlob string   // file glob pattern
	IsDir    bool     // directory completion
}

// flagCompletionMeta maps flag names to their completion metadata.
var flagCompletionMeta = map[string]completionMeta{
	// Enum flags
	"converter": {Values: []string{"pandoc", "goldmark"}},
	"renderer":  {Values: []string{"wkhtmltopdf", "chrome"}},
	"page-size": {Values: []string{"A3", "A4", "A5", "Letter", "Legal"}},
	"encoding":  {Values: []string{"gb18030", "big5", "shift_jis", "euc-kr", "windows-1252", "utf-16"}},
	"ext":       {Values: []string{".md", ".markdown"}},

	// File flags with glob patterns
	"config": {FileGlob: "*.yaml,*.yml"},
	"css":    {FileGlob: "*.css"},

	// Directory flags
	"target-folder": {IsDir: true},
	"asset-path":    {IsDir: true},
}

// extractFlagsFromFlagSet extracts flag definitions from a pflag.FlagSet.
// Enriches with completion metadata from flagCompletionMeta.
func extractFlagsFromFlagSet(fs *flag.FlagSet) []flagDef {
	var flags []flagDef

	fs.VisitAll(func(f *flag.Flag) {
		fd := flagDef{
			Long:  f.Name,
			Short: f.Shorthand,
			Desc:  f.Usage,
		}

		switch f.Value.Type() {
		case "bool":
			fd.Type = flagBool
		case "int", "int8", "int16", "int32", "int64", "uint", "uint8", "uint16", "uint32", "uint64":
			fd.Type = flagInt
		case "stringSlice", "stringArray":
			fd.Repeatable = true
		}

		if meta, ok := flagCompletionMeta[f.Name]; ok {
			switch {
			case len(meta.Values) > 0:
				fd.Type = flagEnum
				fd.Values = meta.Values
			case meta.FileGlob != "":
				fd.Type = flagFile
				fd.FileGlob = meta.FileGlob
			case meta.IsDir:
				fd.Type = flagDir
			}
		}

		flags = append(flags, fd)
	})

	return flags
}

// getCommands returns the command registry for completion.
// Flags come from the same FlagSets the commands parse with.
func getCommands() []commandDef {
	var jsonOutput bool
	names := []string{"convert", "doctor", "config", "version", "help", "completion"}
	shellNames := make([]string, len(shells))
	for i, s := range shells {
		shellNames[i] = string(s)
	}

	return []commandDef{
		{
			Name:     "convert",
			Desc:     "Convert a folder of markdown files",
			Flags:    extractFlagsFromFlagSet(newConvertFlagSet(&convertFlags{})),
			TakesDir: true,
		},
		{
			Name:  "doctor",
			Desc:  "Check pandoc, wkhtmltopdf and Chrome",
			Flags: extractFlagsFromFlagSet(newDoctorFlagSet(&jsonOutput)),
		},
		{
			Name:  "config",
			Desc:  "Print the effective configuration as YAML",
			Flags: extractFlagsFromFlagSet(newConfigFlagSet(&commonFlags{})),
		},
		{Name: "version", Desc: "Show version information"},
		{Name: "help", Desc: "Show help for a command", Args: names},
		{Name: "completion", Desc: "Generate shell completion script", Args: shellNames},
	}
}

// GenerateCompletion writes shell completion script to w.
// Returns error if shell is unsupported or write fails.
func GenerateCompletion(w io.Writer, shell Shell) error {
	var b strings.Builder
	cmds := getCommands()

	switch shell {
	case ShellBash:
		writeBash(&b, cmds)
	case ShellZsh:
		writeZsh(&b, cmds)
	case ShellFish:
		writeFish(&b, cmds)
	case ShellPowerShell:
		writePowerShell(&b, cmds)
	default:
		return fmt.Errorf("%w: %q (supported: bash, zsh, fish, powershell)", ErrUnsupportedShell, shell)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// runCompletion handles the completion command.
func runCompletion(args []string, env *Environment) error {
	if len(args) == 0 {
		printCompletionUsage(env.Stdout)
		return nil
	}
	return GenerateCompletion(env.Stdout, Shell(args[0]))
}

// printCompletionUsage prints help for the completion command.
func printCompletionUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: batchpdf completion <shell>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Generate shell completion script for the specified shell.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Supported shells:")
	fmt.Fprintln(w, "  bash        Bash completion script")
	fmt.Fprintln(w, "  zsh         Zsh completion script")
	fmt.Fprintln(w, "  fish        Fish completion script")
	fmt.Fprintln(w, "  powershell  PowerShell completion script")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Installation:")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Bash:")
	fmt.Fprintln(w, "    # Add to ~/.bashrc:")
	fmt.Fprintln(w, "    eval \"$(batchpdf completion bash)\"")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Zsh:")
	fmt.Fprintln(w, "    # Add to ~/.zshrc (before compinit):")
	fmt.Fprintln(w, "    eval \"$(batchpdf completion zsh)\"")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Fish:")
	fmt.Fprintln(w, "    batchpdf completion fish > ~/.config/fish/completions/batchpdf.fish")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  PowerShell:")
	fmt.Fprintln(w, "    # Add to $PROFILE:")
	fmt.Fprintln(w, "    batchpdf completion powershell | Out-String | Invoke-Expression")
}

// ---------------------------------------------------------------------------
// Shared helpers
// ---------------------------------------------------------------------------

func commandNames(cmds []commandDef) []string {
	names := make([]string, len(cmds))
	for i, c := range cmds {
		names[i] = c.Name
	}
	return names
}

// flagWords returns "--long" and, when present, "-s".
func flagWords(f flagDef) []string {
	words := []string{"--" + f.Long}
	if f.Short != "" {
		words = append(words, "-"+f.Short)
	}
	return words
}

// globExts turns "*.yaml,*.yml" into ["yaml", "yml"].
func globExts(glob string) []string {
	var exts []string
	for p := range strings.SplitSeq(glob, ",") {
		exts = append(exts, strings.TrimPrefix(strings.TrimSpace(p), "*."))
	}
	return exts
}

// ---------------------------------------------------------------------------
// Bash
// ---------------------------------------------------------------------------

func writeBash(b *strings.Builder, cmds []commandDef) {
	b.WriteString("# bash completion for batchpdf\n\n")
	b.WriteString("_batchpdf_completions() {\n")
	b.WriteString("    local cur prev cmd\n")
	b.WriteString("    COMPREPLY=()\n")
	b.WriteString("    cur=\"${COMP_WORDS[COMP_CWORD]}\"\n")
	b.WriteString("    prev=\"${COMP_WORDS[COMP_CWORD-1]}\"\n")
	b.WriteString("    cmd=\"${COMP_WORDS[1]}\"\n\n")
	b.WriteString("    if [[ ${COMP_CWORD} -eq 1 ]]; then\n")
	fmt.Fprintf(b, "        COMPREPLY=( $(compgen -W %q -- \"${cur}\") )\n", strings.Join(commandNames(cmds), " "))
	b.WriteString("        return 0\n")
	b.WriteString("    fi\n\n")
	b.WriteString("    case \"${cmd}\" in\n")

	for _, c := range cmds {
		fmt.Fprintf(b, "    %s)\n", c.Name)
		writeBashValueCases(b, c.Flags)

		var words []string
		for _, f := range c.Flags {
			words = append(words, flagWords(f)...)
		}
		switch {
		case len(c.Args) > 0:
			fmt.Fprintf(b, "        COMPREPLY=( $(compgen -W %q -- \"${cur}\") )\n", strings.Join(c.Args, " "))
		case c.TakesDir:
			b.WriteString("        if [[ ${cur} == -* ]]; then\n")
			fmt.Fprintf(b, "            COMPREPLY=( $(compgen -W %q -- \"${cur}\") )\n", strings.Join(words, " "))
			b.WriteString("        else\n")
			b.WriteString("            COMPREPLY=( $(compgen -d -- \"${cur}\") )\n")
			b.WriteString("        fi\n")
		case len(words) > 0:
			fmt.Fprintf(b, "        COMPREPLY=( $(compgen -W %q -- \"${cur}\") )\n", strings.Join(words, " "))
		}
		b.WriteString("        ;;\n")
	}

	b.WriteString("    esac\n")
	b.WriteString("    return 0\n")
	b.WriteString("}\n\n")
	b.WriteString("complete -F _batchpdf_completions batchpdf\n")
}

// writeBashValueCases completes the argument of the flag in ${prev}.
func writeBashValueCases(b *strings.Builder, flags []flagDef) {
	var cases []string
	for _, f := range flags {
		if !f.takesValue() {
			continue
		}
		var reply string
		switch f.Type {
		case flagEnum:
			reply = fmt.Sprintf("COMPREPLY=( $(compgen -W %q -- \"${cur}\") )", strings.Join(f.Values, " "))
		case flagFile:
			reply = fmt.Sprintf("COMPREPLY=( $(compgen -o plusdirs -f -X '%s' -- \"${cur}\") )", bashGlob(f.FileGlob))
		case flagDir:
			reply = "COMPREPLY=( $(compgen -d -- \"${cur}\") )"
		default:
			reply = "COMPREPLY=()"
		}
		cases = append(cases, fmt.Sprintf("        %s)\n            %s\n            return 0\n            ;;\n",
			strings.Join(flagWords(f), "|"), reply))
	}
	if len(cases) == 0 {
		return
	}

	b.WriteString("        case \"${prev}\" in\n")
	for _, c := range cases {
		b.WriteString(c)
	}
	b.WriteString("        esac\n")
}

// bashGlob returns a compgen -X exclusion pattern for glob.
func bashGlob(glob string) string {
	exts := globExts(glob)
	if len(exts) == 1 {
		return "!*." + exts[0]
	}
	return "!*.@(" + strings.Join(exts, "|") + ")"
}

// ---------------------------------------------------------------------------
// Zsh
// ---------------------------------------------------------------------------

func writeZsh(b *strings.Builder, cmds []commandDef) {
	b.WriteString("#compdef batchpdf\n\n")
	b.WriteString("_batchpdf() {\n")
	b.WriteString("    local -a commands\n")
	b.WriteString("    commands=(\n")
	for _, c := range cmds {
		fmt.Fprintf(b, "        '%s:%s'\n", c.Name, zshQuote(c.Desc))
	}
	b.WriteString("    )\n\n")
	b.WriteString("    if (( CURRENT == 2 )); then\n")
	b.WriteString("        _describe -t commands 'batchpdf command' commands\n")
	b.WriteString("        return\n")
	b.WriteString("    fi\n\n")
	b.WriteString("    local cmd=\"${words[2]}\"\n")
	b.WriteString("    shift words\n")
	b.WriteString("    (( CURRENT-- ))\n\n")
	b.WriteString("    case \"${cmd}\" in\n")

	for _, c := range cmds {
		fmt.Fprintf(b, "    %s)\n", c.Name)
		switch {
		case len(c.Args) > 0:
			fmt.Fprintf(b, "        _values '%s' %s\n", c.Name, strings.Join(c.Args, " "))
		case len(c.Flags) > 0 || c.TakesDir:
			b.WriteString("        _arguments -s")
			for _, f := range c.Flags {
				b.WriteString(" \\\n            " + zshFlagSpec(f))
			}
			if c.TakesDir {
				b.WriteString(" \\\n            '*:folder:_files -/'")
			}
			b.WriteString("\n")
		}
		b.WriteString("        ;;\n")
	}

	b.WriteString("    esac\n")
	b.WriteString("}\n\n")
	b.WriteString("_batchpdf \"$@\"\n")
}

// zshFlagSpec renders one _arguments option spec.
func zshFlagSpec(f flagDef) string {
	var prefix, names string
	if f.Short != "" {
		prefix = fmt.Sprintf("'(-%s --%s)'", f.Short, f.Long)
		names = fmt.Sprintf("{-%s,--%s}", f.Short, f.Long)
	} else {
		names = "--" + f.Long
	}
	if f.Repeatable {
		prefix = "'*'"
	}

	spec := fmt.Sprintf("%s%s'[%s]", prefix, names, zshQuote(f.Desc))
	switch f.Type {
	case flagBool:
	case flagEnum:
		spec += fmt.Sprintf(":%s:(%s)", f.Long, strings.Join(f.Values, " "))
	case flagFile:
		spec += fmt.Sprintf(":file:_files -g \"*.(%s)\"", strings.Join(globExts(f.FileGlob), "|"))
	case flagDir:
		spec += ":directory:_files -/"
	default:
		spec += fmt.Sprintf(":%s: ", f.Long)
	}
	return spec + "'"
}

// zshQuote escapes text for a single-quoted _arguments description.
func zshQuote(s string) string {
	r := strings.NewReplacer("'", `'\''`, "[", `\[`, "]", `\]`)
	return r.Replace(s)
}

// ---------------------------------------------------------------------------
// Fish
// ---------------------------------------------------------------------------

func writeFish(b *strings.Builder, cmds []commandDef) {
	b.WriteString("# fish completion for batchpdf\n\n")
	b.WriteString("function __fish_batchpdf_needs_command\n")
	b.WriteString("    set -l cmd (commandline -opc)\n")
	b.WriteString("    test (count $cmd) -eq 1\n")
	b.WriteString("end\n\n")
	b.WriteString("function __fish_batchpdf_using_command\n")
	b.WriteString("    set -l cmd (commandline -opc)\n")
	b.WriteString("    test (count $cmd) -gt 1; and test $cmd[2] = $argv[1]\n")
	b.WriteString("end\n\n")
	b.WriteString("complete -c batchpdf -f\n")

	for _, c := range cmds {
		fmt.Fprintf(b, "complete -c batchpdf -n __fish_batchpdf_needs_command -a %s -d '%s'\n", c.Name, fishQuote(c.Desc))
	}

	for _, c := range cmds {
		cond := fmt.Sprintf("-n '__fish_batchpdf_using_command %s'", c.Name)
		b.WriteString("\n")
		for _, f := range c.Flags {
			line := "complete -c batchpdf " + cond
			if f.Short != "" {
				line += " -s " + f.Short
			}
			line += " -l " + f.Long + " -d '" + fishQuote(f.Desc) + "'"
			switch f.Type {
			case flagBool:
			case flagEnum:
				line += " -x -a '" + strings.Join(f.Values, " ") + "'"
			case flagFile:
				line += " -r -F"
			case flagDir:
				line += " -x -a '(__fish_complete_directories)'"
			default:
				line += " -x"
			}
			b.WriteString(line + "\n")
		}
		if len(c.Args) > 0 {
			fmt.Fprintf(b, "complete -c batchpdf %s -a '%s'\n", cond, strings.Join(c.Args, " "))
		}
		if c.TakesDir {
			fmt.Fprintf(b, "complete -c batchpdf %s -a '(__fish_complete_directories)'\n", cond)
		}
	}
}

// fishQuote escapes text for a single-quoted fish string.
func fishQuote(s string) string {
	return strings.NewReplacer(`\`, `\\`, "'", `\'`).Replace(s)
}

// ---------------------------------------------------------------------------
// PowerShell
// ---------------------------------------------------------------------------

func writePowerShell(b *strings.Builder, cmds []commandDef) {
	b.WriteString("# PowerShell completion for batchpdf\n\n")
	b.WriteString("Register-ArgumentCompleter -Native -CommandName batchpdf -ScriptBlock {\n")
	b.WriteString("    param($wordToComplete, $commandAst, $cursorPosition)\n\n")

	b.WriteString("    $commands = [ordered]@{\n")
	for _, c := range cmds {
		fmt.Fprintf(b, "        '%s' = '%s'\n", c.Name, psQuote(c.Desc))
	}
	b.WriteString("    }\n")

	b.WriteString("    $flags = @{\n")
	for _, c := range cmds {
		var words []string
		for _, f := range c.Flags {
			for _, w := range flagWords(f) {
				words = append(words, "'"+w+"'")
			}
		}
		for _, a := range c.Args {
			words = append(words, "'"+a+"'")
		}
		if len(words) > 0 {
			fmt.Fprintf(b, "        '%s' = @(%s)\n", c.Name, strings.Join(words, ", "))
		}
	}
	b.WriteString("    }\n")

	b.WriteString("    $values = @{\n")
	seen := make(map[string]bool)
	for _, c := range cmds {
		for _, f := range c.Flags {
			if f.Type != flagEnum || seen[f.Long] {
				continue
			}
			seen[f.Long] = true
			quoted := make([]string, len(f.Values))
			for i, v := range f.Values {
				quoted[i] = "'" + v + "'"
			}
			for _, w := range flagWords(f) {
				fmt.Fprintf(b, "        '%s' = @(%s)\n", w, strings.Join(quoted, ", "))
			}
		}
	}
	b.WriteString("    }\n\n")

	b.WriteString("    $words = @($commandAst.CommandElements | Select-Object -Skip 1 | ForEach-Object { $_.ToString() })\n")
	b.WriteString("    if ($wordToComplete) { $words = @($words | Select-Object -SkipLast 1) }\n\n")
	b.WriteString("    if ($words.Count -eq 0) {\n")
	b.WriteString("        $commands.Keys | Where-Object { $_ -like \"$wordToComplete*\" } | ForEach-Object {\n")
	b.WriteString("            [System.Management.Automation.CompletionResult]::new($_, $_, 'ParameterValue', $commands[$_])\n")
	b.WriteString("        }\n")
	b.WriteString("        return\n")
	b.WriteString("    }\n\n")
	b.WriteString("    $prev = $words[-1]\n")
	b.WriteString("    if ($values.ContainsKey($prev)) {\n")
	b.WriteString("        $values[$prev] | Where-Object { $_ -like \"$wordToComplete*\" } | ForEach-Object {\n")
	b.WriteString("            [System.Management.Automation.CompletionResult]::new($_, $_, 'ParameterValue', $_)\n")
	b.WriteString("        }\n")
	b.WriteString("        return\n")
	b.WriteString("    }\n\n")
	b.WriteString("    $cmd = $words[0]\n")
	b.WriteString("    if ($flags.ContainsKey($cmd)) {\n")
	b.WriteString("        $flags[$cmd] | Where-Object { $_ -like \"$wordToComplete*\" } | ForEach-Object {\n")
	b.WriteString("            [System.Management.Automation.CompletionResult]::new($_, $_, 'ParameterName', $_)\n")
	b.WriteString("        }\n")
	b.WriteString("    }\n")
	b.WriteString("}\n")
}

// psQuote escapes text for a single-quoted PowerShell string.
func psQuote(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
