// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command provecalc inspects and applies assistant worksheet commands from
// the terminal.
//
// Usage:
//
//	provecalc normalize '\frac{1}{2} m v^2'
//	provecalc vars 'F = m a'
//	provecalc parse reply.md
//	provecalc check --doc sheet.json reply.md
//	provecalc apply --doc sheet.json --out next.json reply.md
//	provecalc history --server http://localhost:8087 WORKSHEET_ID
package main

import (
	"os"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
