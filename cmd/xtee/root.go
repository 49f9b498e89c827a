package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	logger "github.com/harwoeck/liblog/contract"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Exit codes of xtee.
const (
	exitOK     = 0
	exitFailed = 1
	exitHalted = 2
)

// exitError carries a non-zero exit code out of a command without printing
// an error.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

type app struct {
	v       *viper.Viper
	cfgFile string
	log     logger.Logger
	in      io.Reader
	out     io.Writer
}

func execute(args []string, in io.Reader, out, errOut io.Writer) int {
	a := &app{
		v:   viper.New(),
		log: logger.MustNewStd(),
		in:  in,
		out: out,
	}

	root := a.rootCmd()
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	err := root.Execute()
	if err == nil {
		return exitOK
	}

	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	fmt.Fprintf(errOut, "Error: %v\n", err)
	return exitFailed
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "xtee",
		Short: "Conformance cases for the key derivation extensions of a secure environment",
		Long: `xtee drives HKDF, Concat KDF, PBKDF2 and scrypt derivations through the
operation protocol of a secure environment and compares every derived key to
its published test vector. Optional trusted UI cases exercise a display.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is ./xtee.yaml or $HOME/xtee.yaml)")
	flags.String("backend", "", "secure environment (soft, hsm)")
	flags.String("hsm-module", "", "path to the PKCS#11 module")
	flags.String("hsm-label", "", "label of the PKCS#11 token")
	flags.String("hsm-user-pin", "", "user pin of the PKCS#11 token (or use XTEE_HSM_USER_PIN)")
	flags.Bool("slow", false, "include slow test vectors")
	flags.StringSlice("cases", nil, "ids of the cases to run (default all)")
	flags.Bool("tui", false, "register the interactive trusted UI cases")
	flags.String("report", "", "write a yaml summary of the run to this path")

	a.bindFlagOrPanic(root, "backend", "backend")
	a.bindFlagOrPanic(root, "hsm.module", "hsm-module")
	a.bindFlagOrPanic(root, "hsm.label", "hsm-label")
	a.bindFlagOrPanic(root, "hsm.user_pin", "hsm-user-pin")
	a.bindFlagOrPanic(root, "suite.slow", "slow")
	a.bindFlagOrPanic(root, "suite.cases", "cases")
	a.bindFlagOrPanic(root, "suite.tui", "tui")
	a.bindFlagOrPanic(root, "report.yaml", "report")

	root.AddCommand(a.runCmd(), a.listCmd())
	return root
}

func (a *app) bindFlagOrPanic(root *cobra.Command, configKey, flagName string) {
	if err := a.v.BindPFlag(configKey, root.PersistentFlags().Lookup(flagName)); err != nil {
		panic(fmt.Sprintf("failed to bind %s flag: %v", flagName, err))
	}
}

func (a *app) initConfig() error {
	a.v.SetDefault("backend", "soft")
	a.v.SetDefault("suite.slow", false)
	a.v.SetDefault("suite.tui", false)

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			a.v.AddConfigPath(home)
		}
		a.v.SetConfigType("yaml")
		a.v.SetConfigName("xtee")
	}

	a.v.SetEnvPrefix("XTEE")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("xtee: failed to read config: %w", err)
		}
	} else {
		a.log.Debug("using config file", logger.NewField("path", a.v.ConfigFileUsed()))
	}

	return nil
}
