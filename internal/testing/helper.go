package testing

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Environment variables that turn a test binary into a fake interpreter.
// Tests point an interpreter path at os.Args[0] and pick a behaviour with
// HelperModeEnv; children inherit it.
const (
	HelperModeEnv    = "NOVO_HELPER_MODE"
	HelperVersionEnv = "NOVO_HELPER_VERSION"
)

// Helper modes
const (
	HelperSucceed      = "succeed"       // "done" on stdout, exit 0
	HelperFail         = "fail"          // "boom" on stderr, exit 1
	HelperClassVersion = "class-version" // UnsupportedClassVersionError, exit 1
	HelperNoModule     = "no-module"     // ModuleNotFoundError, exit 1
	HelperEchoArgs     = "echo-args"     // args on stdout one per line, cwd on stderr
	HelperSleep        = "sleep"         // sleeps for a minute
	HelperNoVersion    = "no-version"    // version queries fail
)

// RunHelperProcess makes the test binary act as a fake interpreter when
// HelperModeEnv is set, and exits. Call it first thing in TestMain.
func RunHelperProcess() {
	mode := os.Getenv(HelperModeEnv)
	if mode == "" {
		return
	}
	os.Exit(helperMain(mode, os.Args[1:]))
}

func helperMain(mode string, args []string) int {
	if len(args) == 1 && (args[0] == "-version" || args[0] == "--version") {
		if mode == HelperNoVersion {
			fmt.Fprintln(os.Stderr, "unrecognized option")
			return 2
		}
		version := os.Getenv(HelperVersionEnv)
		if version == "" {
			version = "21.0.2"
		}
		// java reports on stderr, python on stdout
		if args[0] == "-version" {
			fmt.Fprintf(os.Stderr, "openjdk version \"%s\" 2024-01-16\nOpenJDK Runtime Environment\n", version)
		} else {
			fmt.Fprintf(os.Stdout, "Python %s\n", version)
		}
		return 0
	}

	switch mode {
	case HelperSucceed, HelperNoVersion:
		fmt.Fprintln(os.Stdout, "done")
		fmt.Fprintln(os.Stderr, "progress 100%")
		return 0
	case HelperFail:
		fmt.Fprintln(os.Stdout, "partial")
		fmt.Fprintln(os.Stderr, "boom")
		return 1
	case HelperClassVersion:
		fmt.Fprintln(os.Stderr, `Exception in thread "main" java.lang.UnsupportedClassVersionError: PrecursorSwap has been compiled by a more recent version of the Java Runtime`)
		return 1
	case HelperNoModule:
		fmt.Fprintln(os.Stderr, "ModuleNotFoundError: No module named 'casanovo'")
		return 1
	case HelperEchoArgs:
		fmt.Fprintln(os.Stdout, strings.Join(args, "\n"))
		wd, _ := os.Getwd()
		fmt.Fprintf(os.Stderr, "cwd=%s\n", wd)
		return 0
	case HelperSleep:
		time.Sleep(time.Minute)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown helper mode %q\n", mode)
		return 3
	}
}
