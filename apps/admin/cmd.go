package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/alama/apps/shared"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	confirmFunc      = confirm           // mockable

	errHelp    = errors.New("help provided")
	errAborted = errors.New("aborted")
)

type commandLine struct {
	deps *shared.Deps
	out  io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  init [-grade N] [-dry-run]                              - add the default subjects to an empty store")
	fmt.Fprintln(cli.out, "  seed [-grade N] [-students N] [-weeks N] [-seed N] [-dry-run] - generate sample students and marks")
	fmt.Fprintln(cli.out, "  clear -collection marks|subjects|users|all [-yes] [-dry-run] - delete a collection")
	fmt.Fprintln(cli.out, "  fixgrades [-dry-run]                                    - rewrite numeric values stored as strings")
	fmt.Fprintln(cli.out, "  recreateaccounts [-dry-run]                             - create missing accounts for stored profiles")
	fmt.Fprintln(cli.out, "  resetpassword -email EMAIL                              - reset an account's password")
	fmt.Fprintln(cli.out, "  stats                                                   - print database statistics")
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	initCmd := cli.newFlagSet("init")
	initGrade := initCmd.Int("grade", cli.deps.Conf.School.MinGrade, "The grade given to the created subjects.")
	initDryRun := initCmd.Bool("dry-run", false, "Print what would be written.")

	seedCmd := cli.newFlagSet("seed")
	seedGrade := seedCmd.Int("grade", cli.deps.Conf.School.MinGrade, "The grade of the generated students.")
	seedStudents := seedCmd.Int("students", 10, "The number of students to generate.")
	seedWeeks := seedCmd.Int("weeks", 4, "The number of weekly marks per student and subject.")
	seedSeed := seedCmd.Int64("seed", 1, "The random seed of the scores.")
	seedDryRun := seedCmd.Bool("dry-run", false, "Print what would be written.")

	clearCmd := cli.newFlagSet("clear")
	clearColl := clearCmd.String("collection", "", "marks, subjects, users or all.")
	clearYes := clearCmd.Bool("yes", false, "Do not ask for confirmation.")
	clearDryRun := clearCmd.Bool("dry-run", false, "Print what would be deleted.")

	fixCmd := cli.newFlagSet("fixgrades")
	fixDryRun := fixCmd.Bool("dry-run", false, "Print what would be rewritten.")

	recreateCmd := cli.newFlagSet("recreateaccounts")
	recreateDryRun := recreateCmd.Bool("dry-run", false, "Print the profiles missing an account.")

	resetPasswordCmd := cli.newFlagSet("resetpassword")
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The account's email. The password will be prompted next.")

	statsCmd := cli.newFlagSet("stats")

	switch args[1] {
	case "init":
		if err := initCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if err := cli.checkGrade(*initGrade); err != nil {
			return err
		}
		return cli.initSubjects(ctx, *initGrade, *initDryRun)
	case "seed":
		if err := seedCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if err := cli.checkGrade(*seedGrade); err != nil {
			return err
		}
		if *seedStudents < 1 || *seedWeeks < 1 {
			seedCmd.Usage()
			return errHelp
		}
		return cli.seed(ctx, seedOptions{
			grade:    *seedGrade,
			students: *seedStudents,
			weeks:    *seedWeeks,
			seed:     *seedSeed,
			dryRun:   *seedDryRun,
		})
	case "clear":
		if err := clearCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		colls, ok := clearTargets[*clearColl]
		if !ok {
			clearCmd.Usage()
			return errHelp
		}
		if !*clearDryRun && !*clearYes && !confirmFunc(fmt.Sprintf("Delete every record of %s?", *clearColl)) {
			return errAborted
		}
		return cli.clear(ctx, colls, *clearDryRun)
	case "fixgrades":
		if err := fixCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.fixGrades(ctx, *fixDryRun)
	case "recreateaccounts":
		if err := recreateCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		pwd := ""
		if !*recreateDryRun {
			var err error
			if pwd, err = cli.readPassword("Enter the temporary password of the recreated accounts:"); err != nil {
				return err
			}
			if pwd == "" {
				recreateCmd.Usage()
				return errHelp
			}
		}
		return cli.recreateAccounts(ctx, pwd, *recreateDryRun)
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword("Enter password:")
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(ctx, *resetPasswordEmail, pwd)
	case "stats":
		if err := statsCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.printStats(ctx)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) checkGrade(grade int) error {
	school := cli.deps.Conf.School
	if grade < school.MinGrade || grade > school.MaxGrade {
		return fmt.Errorf("grade must be between %d and %d", school.MinGrade, school.MaxGrade)
	}
	return nil
}

func (cli *commandLine) readPassword(prompt string) (string, error) {
	fmt.Fprint(cli.out, prompt)
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N] ", prompt)
	answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
