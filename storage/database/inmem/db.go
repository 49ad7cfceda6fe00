package inmemdb

import (
	"sync"

	"github.com/trezcool/regroup/core/roster"
)

type (
	DB struct {
		class   *classTable
		student *studentTable
	}

	classTable struct {
		sync.RWMutex
		table map[string]*roster.Class
	}

	// studentTable keeps every class roster in insertion order.
	studentTable struct {
		sync.RWMutex
		table map[string][]roster.Student // by class id
	}
)

func Open() *DB {
	return &DB{
		class:   &classTable{table: make(map[string]*roster.Class)},
		student: &studentTable{table: make(map[string][]roster.Student)},
	}
}
