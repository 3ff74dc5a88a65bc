package inmemdb

import (
	"sync"

	"github.com/coinsforstudy/coins/core/economy"
)

type (
	DB struct {
		session *sessionTable
	}

	sessionTable struct {
		mutex sync.RWMutex
		table map[string]*economy.SessionRecord
	}
)

func Open() *DB {
	return &DB{
		session: &sessionTable{table: make(map[string]*economy.SessionRecord)},
	}
}
