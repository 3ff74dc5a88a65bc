package logsvc

import (
	"bytes"
	"errors"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coinsforstudy/coins/core"
	"github.com/coinsforstudy/coins/core/economy"
)

func TestRollbarLogger(t *testing.T) {
	var out bytes.Buffer
	logger := NewRollbarLogger(log.New(&out, "", 0), &core.Config{Env: "TEST", TestMode: true})

	actor := economy.Actor{ID: "u1", Name: "ana", Role: economy.RoleStudent}
	logger.Error("purchase failed", errors.New("boom"), actor, map[string]interface{}{"points": 3})

	assert.Equal(t, "purchase failed\nboom\nstudent:ana\nmap[points:3]\n", out.String())
}

func TestRollbarLogger_Prepare(t *testing.T) {
	logger := NewRollbarLogger(log.New(&bytes.Buffer{}, "", 0), &core.Config{TestMode: true})

	first := economy.Actor{ID: "u1", Name: "ana", Role: economy.RoleTeacher}
	second := economy.Actor{ID: "u2", Name: "bia", Role: economy.RoleAdmin}
	rbArgs, printArgs := logger.prepare("msg", []interface{}{first, "extra", second})

	assert.Equal(t, []interface{}{"msg", "extra"}, rbArgs)
	assert.Equal(t, []interface{}{"teacher:ana", "extra", "admin:bia"}, printArgs)
}
