/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package ioutils

import (
	"os"
	"path/filepath"

	"github.com/sabouaram/pmix/errors"
)

// PathCheckCreate ensures a file or directory exists at path with the given
// permissions, creating parent directories as needed. The daemon calls this
// once at startup for the pmix.sock parent directory (isFile=false) and
// once for the configured log file (isFile=true) before anything binds to
// either; a config reload that points the log file elsewhere calls it
// again.
//
// Existing paths of the wrong type are reported via ErrorPathWrongType
// rather than silently coerced; existing paths of the right type have
// their permissions corrected in place.
func PathCheckCreate(isFile bool, path string, permFile os.FileMode, permDir os.FileMode) error {
	if inf, err := os.Stat(path); err != nil && !os.IsNotExist(err) {
		return err
	} else if err == nil && inf.IsDir() {
		if isFile {
			return ErrorPathWrongType.Error()
		}
		if inf.Mode() != permDir {
			if e := os.Chmod(path, permDir); e != nil {
				return ErrorPathChmod.Error(e)
			}
		}
		return nil
	} else if err == nil && !inf.IsDir() {
		if !isFile {
			return ErrorPathWrongType.Error()
		}
		if inf.Mode() != permFile {
			if e := os.Chmod(path, permFile); e != nil {
				return ErrorPathChmod.Error(e)
			}
		}
		return nil
	} else if !isFile {
		if e := os.MkdirAll(path, permDir); e != nil {
			return ErrorPathMkdir.Error(e)
		}
		return nil
	} else if err = PathCheckCreate(false, filepath.Dir(path), permFile, permDir); err != nil {
		return err
	}

	rt, e := os.OpenRoot(filepath.Dir(path))
	defer func() {
		if rt != nil {
			_ = rt.Close()
		}
	}()
	if e != nil {
		return ErrorPathCreate.Error(e)
	}

	hf, e := rt.Create(filepath.Base(path))
	defer func() {
		if hf != nil {
			_ = hf.Close()
		}
	}()
	if e != nil {
		return ErrorPathCreate.Error(e)
	}

	_ = hf.Close()
	hf = nil

	if e = rt.Chmod(filepath.Base(path), permFile); e != nil {
		return ErrorPathChmod.Error(e)
	}

	return nil
}
