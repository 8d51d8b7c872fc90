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
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/algorand/go-onlineaccounts/onlineaccounts"
)

var bucketsCount int

func init() {
	bucketsCmd.Flags().IntVarP(&bucketsCount, "count", "n", 1, "Number of consecutive minutes to list")
}

var bucketsCmd = &cobra.Command{
	Use:   "buckets [now-millis]",
	Short: "Show which buckets are live at a time (default: now)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		now := time.Now().UnixMilli()
		if len(args) == 1 {
			var err error
			if now, err = strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("invalid timestamp %q: %w", args[0], err)
			}
		}
		params, err := loadConsensus()
		if err != nil {
			return err
		}
		selector, err := onlineaccounts.MakeWindowSelector(params)
		if err != nil {
			return err
		}
		printBuckets(cmd.OutOrStdout(), selector, now, bucketsCount)
		return nil
	},
}

func printBuckets(w io.Writer, selector onlineaccounts.WindowSelector, now int64, count int) {
	for i := 0; i < max(count, 1); i++ {
		ts := now + int64(i)*time.Minute.Milliseconds()
		mode := "v1"
		if selector.V2(ts) {
			mode = "v2"
		}
		fmt.Fprintf(w, "%d %s block-bucket=%d live=%v\n", ts, mode, selector.BucketFor(ts), selector.ActiveBuckets(ts))
	}
}
