// Copyright (C) 2019-2024 Algorand, Inc.
// This file is part of go-onlineaccounts
//
// go-onlineaccounts is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// go-onlineaccounts is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with go-onlineaccounts.  If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/algorand/go-onlineaccounts/onlineaccounts"
)

var decodeRequest bool
var decodeHex bool

func init() {
	decodeCmd.Flags().BoolVarP(&decodeRequest, "request", "r", false, "Decode a request body instead of a data body")
	decodeCmd.Flags().BoolVarP(&decodeHex, "hex", "x", false, "Input is hex encoded")
}

var decodeCmd = &cobra.Command{
	Use:   "decode [file]",
	Short: "Decode an online accounts message body (default: stdin)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := cmd.InOrStdin()
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}
		raw, err := io.ReadAll(in)
		if err != nil {
			return err
		}
		shape := onlineaccounts.DataShape
		if decodeRequest {
			shape = onlineaccounts.RequestShape
		}
		return decodeMessage(cmd.OutOrStdout(), shape, raw, decodeHex)
	},
}

func decodeMessage(w io.Writer, shape onlineaccounts.Shape, raw []byte, isHex bool) error {
	if isHex {
		var err error
		raw, err = hex.DecodeString(strings.TrimSpace(string(raw)))
		if err != nil {
			return fmt.Errorf("invalid hex input: %w", err)
		}
	}
	entries, err := onlineaccounts.Decode(shape, raw)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s message, %d accounts\n", shape, len(entries))
	for _, e := range entries {
		if e.Signed() {
			valid := e.PublicKey.VerifyBytes(onlineaccounts.SigningMessage(e.Timestamp), *e.Signature)
			fmt.Fprintf(w, "%d %v %v valid=%v\n", e.Timestamp, e.PublicKey, e.Signature, valid)
		} else {
			fmt.Fprintf(w, "%d %v\n", e.Timestamp, e.PublicKey)
		}
	}
	return nil
}
