// Copyright 2021 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/matrixorigin/rleseg/pkg/vm/engine/tae/options"
)

func loadOptions(path string) (*options.Options, error) {
	if path == "" {
		opts := new(options.Options).FillDefaults()
		return opts, opts.Validate()
	}
	return options.LoadOptions(path)
}

func configCommand() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective options",
		Long:  "Load a toml config, fill in defaults and print the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := loadOptions(path)
			if err != nil {
				return err
			}
			return toml.NewEncoder(os.Stdout).Encode(opts)
		},
	}
	cmd.Flags().StringVarP(&path, "config", "c", "", "toml config file")
	return cmd
}
