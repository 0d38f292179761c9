package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var callArgs string

var callCmd = &cobra.Command{
	Use:   "call <function>",
	Short: "Invoke a shopping function directly",
	Long: `Invoke a shopping function by name with JSON arguments.

Arguments come from --args, or from stdin when --args is "-".

  shopctl call intelligentSearch --args '{"query":"milk","latitude":24.86,"longitude":67.0}'
  echo '{"shopId":"s1"}' | shopctl call getCart --args -`,
	Args: cobra.ExactArgs(1),
	RunE: runCall,
}

func init() {
	callCmd.Flags().StringVarP(&callArgs, "args", "a", "{}", "function arguments as JSON, or - for stdin")
	rootCmd.AddCommand(callCmd)
}

func runCall(cmd *cobra.Command, args []string) error {
	raw := []byte(callArgs)
	if callArgs == "-" {
		var err error
		raw, err = io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
	}
	if !json.Valid(raw) {
		return errors.New("--args is not valid JSON")
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	res, err := client.Call(cmd.Context(), args[0], json.RawMessage(raw))
	if err != nil {
		return err
	}
	if err := printJSON(cmd.OutOrStdout(), res); err != nil {
		return err
	}
	if !res.Success {
		os.Exit(2)
	}
	return nil
}
