// Copyright (C) The HistDiff Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package main

import (
	"github.com/lokeylab/histdiff"
)

func main() {
	histdiff.Main()
}
