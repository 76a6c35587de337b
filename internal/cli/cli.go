// Package cli parses parley command-line arguments.
package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type Command string

const (
	CommandStart      Command = "start"
	CommandRecord     Command = "record"
	CommandCancel     Command = "cancel"
	CommandReplay     Command = "replay"
	CommandRetry      Command = "retry"
	CommandStatus     Command = "status"
	CommandTranscript Command = "transcript"
	CommandExport     Command = "export"
	CommandEnd        Command = "end"
	CommandDevices    Command = "devices"
	CommandDoctor     Command = "doctor"
	CommandVersion    Command = "version"
	CommandHelp       Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandStart:      {},
	CommandRecord:     {},
	CommandCancel:     {},
	CommandReplay:     {},
	CommandRetry:      {},
	CommandStatus:     {},
	CommandTranscript: {},
	CommandExport:     {},
	CommandEnd:        {},
	CommandDevices:    {},
	CommandDoctor:     {},
	CommandVersion:    {},
	CommandHelp:       {},
}

// flagScope lists the only command each command-specific flag applies to.
var flagScope = map[string]Command{
	"--category":  CommandStart,
	"--role":      CommandTranscript,
	"--turn":      CommandReplay,
	"--format":    CommandExport,
	"--output":    CommandExport,
	"--remote":    CommandExport,
	"--clipboard": CommandExport,
}

type Parsed struct {
	Command    Command
	ConfigPath string
	ShowHelp   bool
	Verbose    bool

	Category  string
	Role      string
	Turn      *int
	Format    string
	Output    string
	Remote    bool
	Clipboard bool
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}
	sawCommand := false
	used := []string{}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		name, inline, hasInline := strings.Cut(arg, "=")
		if !strings.HasPrefix(arg, "--") {
			name, inline, hasInline = arg, "", false
		}

		value := func() (string, error) {
			if hasInline {
				return inline, nil
			}
			i++
			if i >= len(args) {
				return "", fmt.Errorf("%s requires a value", name)
			}
			return args[i], nil
		}

		switch name {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
			return parsed, nil
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
			sawCommand = true
		case "-v", "--verbose":
			parsed.Verbose = true
		case "--config":
			v, err := value()
			if err != nil {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = v
		case "--category":
			v, err := value()
			if err != nil {
				return Parsed{}, err
			}
			parsed.Category = v
			used = append(used, name)
		case "--role":
			v, err := value()
			if err != nil {
				return Parsed{}, err
			}
			parsed.Role = v
			used = append(used, name)
		case "--turn":
			v, err := value()
			if err != nil {
				return Parsed{}, err
			}
			n, convErr := strconv.Atoi(v)
			if convErr != nil || n < 0 {
				return Parsed{}, fmt.Errorf("--turn must be a non-negative integer, got %q", v)
			}
			parsed.Turn = &n
			used = append(used, name)
		case "--format":
			v, err := value()
			if err != nil {
				return Parsed{}, err
			}
			parsed.Format = v
			used = append(used, name)
		case "--output", "-o":
			v, err := value()
			if err != nil {
				return Parsed{}, err
			}
			parsed.Output = v
			used = append(used, "--output")
		case "--remote":
			parsed.Remote = true
			used = append(used, name)
		case "--clipboard":
			parsed.Clipboard = true
			used = append(used, name)
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}
			if sawCommand {
				return Parsed{}, fmt.Errorf("unexpected argument %q after command %q", arg, parsed.Command)
			}

			cmd := Command(arg)
			if _, ok := validCommands[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}
			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
			sawCommand = true
		}
	}

	for _, flag := range used {
		if want := flagScope[flag]; want != parsed.Command {
			return Parsed{}, fmt.Errorf("%s is only valid with %s", flag, want)
		}
	}
	if parsed.Clipboard && parsed.Output != "" {
		return Parsed{}, errors.New("--clipboard and --output are mutually exclusive")
	}

	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] <command> [flags]

Interview:
  start        Open an interview and keep it running (owner process)
  record       Start answering, or stop and submit the answer
  cancel       Discard the answer being recorded
  replay       Play interviewer audio again (latest turn by default)
  retry        Request the opening question again after it failed
  status       Print interview state
  transcript   Print the conversation so far
  export       Export the conversation with an engagement summary
  end          End the interview and stop the owner process

Tools:
  devices      List available input devices
  doctor       Run configuration and environment checks
  version      Print version information
  help         Show this help

Flags:
  --config PATH      Config file path (default: $XDG_CONFIG_HOME/parley/config.jsonc)
  --category NAME    start: general, technical, or hr
  --turn N           replay: log index to play
  --role ROLE        transcript: only candidate or interviewer turns
  --format FORMAT    export: json, yaml, or markdown
  --output, -o PATH  export: write to file instead of stdout
  --clipboard        export: copy to clipboard instead of stdout
  --remote           export: fetch the API's own export for this session
  -v, --verbose      Debug-level logging
  -h, --help         Show help
  --version          Show version
`, binaryName)
}
