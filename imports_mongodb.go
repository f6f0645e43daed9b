//go:build mongodb || all_adapters

package main

import _ "github.com/anshumax/semantiqa-sub001/pkg/adapters/source/mongodb"
