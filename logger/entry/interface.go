/***********************************************************************************************************************
 *
 *   MIT License
 *
 *   Copyright (c) 2021 Nicolas JUHEL
 *
 *   Permission is hereby granted, free of charge, to any person obtaining a copy
 *   of this software and associated documentation files (the "Software"), to deal
 *   in the Software without restriction, including without limitation the rights
 *   to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 *   copies of the Software, and to permit persons to whom the Software is
 *   furnished to do so, subject to the following conditions:
 *
 *   The above copyright notice and this permission notice shall be included in all
 *   copies or substantial portions of the Software.
 *
 *   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 *   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 *   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 *   AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 *   LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 *   OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 *   SOFTWARE.
 *
 *
 **********************************************************************************************************************/

package entry

import (
	"time"

	ginsdk "github.com/gin-gonic/gin"
	logfld "github.com/sabouaram/pmix/logger/fields"
	loglvl "github.com/sabouaram/pmix/logger/level"
	"github.com/sirupsen/logrus"
)

type Entry interface {
	// SetLogger sets the logger function; a nil function means Log is a no-op.
	SetLogger(fct func() *logrus.Logger) Entry
	// SetLevel overrides the level New was called with.
	SetLevel(lvl loglvl.Level) Entry
	// SetMessageOnly, when true, makes Log emit only the message, skipping fields/context.
	SetMessageOnly(flag bool) Entry
	// SetEntryContext sets the time/stack/caller/file/line/message logged alongside fields.
	SetEntryContext(etime time.Time, stack uint64, caller, file string, line uint64, msg string) Entry
	// SetGinContext registers ErrorAdd's errors into ctx.Errors when ctx is non-nil.
	SetGinContext(ctx *ginsdk.Context) Entry

	// DataSet attaches arbitrary structured data to log alongside the message.
	DataSet(data interface{}) Entry
	// Check reports whether the entry would log at lvlNoErr given its current errors.
	Check(lvlNoErr loglvl.Level) bool
	// Log emits the entry to the logger set by SetLogger, then clears it.
	Log()

	// FieldAdd sets a single key/value, overwriting an existing key.
	FieldAdd(key string, val interface{}) Entry
	// FieldMerge shallow-merges fields into the entry's existing field set.
	FieldMerge(fields logfld.Fields) Entry
	// FieldSet replaces the entry's field set wholesale.
	FieldSet(fields logfld.Fields) Entry
	// FieldClean removes the given keys; a missing key is ignored.
	FieldClean(keys ...string) Entry

	// ErrorClean discards all errors previously added to the entry.
	ErrorClean() Entry
	// ErrorSet replaces the entry's error slice wholesale.
	ErrorSet(err []error) Entry
	// ErrorAdd appends err to the entry; cleanNil drops any nil entries from err first.
	ErrorAdd(cleanNil bool, err ...error) Entry
}

// New creates an Entry at lvl, timestamped now, with no logger, gin context,
// data, or fields set yet.
func New(lvl loglvl.Level) Entry {
	return &entry{
		log:    nil,
		gin:    nil,
		clean:  false,
		Level:  lvl,
		Time:   time.Now(),
		Error:  make([]error, 0),
		Data:   nil,
		Fields: nil,
	}
}
