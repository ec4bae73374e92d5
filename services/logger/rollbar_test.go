package logsvc

import (
	"bytes"
	"fmt"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/user"
)

func newTestLogger(debug bool) (*RollbarLogger, *bytes.Buffer) {
	buf := new(bytes.Buffer)
	conf := &core.Config{Env: "test", TestMode: true, Debug: debug}
	return NewRollbarLogger(log.New(buf, "", 0), conf), buf
}

func TestRollbarLogger_print(t *testing.T) {
	logger, buf := newTestLogger(false)
	usr := user.User{UID: "u1", Name: "Mwalimu", Role: user.RoleTeacher}

	logger.Error("saving mark", fmt.Errorf("boom"), usr, map[string]interface{}{"id": "m1"})

	assert.Equal(t, "ERROR: saving mark\n  boom\n  user: u1 (teacher)\n  map[id:m1]\n", buf.String())
}

func TestRollbarLogger_Debug(t *testing.T) {
	logger, buf := newTestLogger(false)
	logger.Debug("hidden")
	assert.Empty(t, buf.String())

	logger, buf = newTestLogger(true)
	logger.Debug("shown")
	assert.Equal(t, "DEBUG: shown\n", buf.String())
}

func TestRollbarLogger_prepare(t *testing.T) {
	logger, _ := newTestLogger(false)
	err := errors.New("boom")
	args := logger.prepare("msg", []interface{}{user.User{UID: "u1"}, err, user.User{UID: "u2"}})
	assert.Equal(t, []interface{}{"msg", err}, args)
}
