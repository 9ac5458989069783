//go:build db2

package compare

import (
	_ "github.com/ibmdb/go_ibm_db"
)
