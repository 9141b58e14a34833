// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command classo fits constrained sparse regression models from YAML data files or synthetic data
// and prints the coefficients as YAML.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "classo:", err)
		os.Exit(1)
	}
}
