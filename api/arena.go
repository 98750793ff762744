// Copyright (c) 2019 Perlin
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
// the Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
// FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
// COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
// IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
// CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

package api

import (
	"encoding/hex"
	"strconv"

	"github.com/perlin-network/sortition"
	"github.com/valyala/fastjson"
)

// Only supports string, []byte (hex), sortition.ID, sortition.Seed, int,
// uint64, bool and *fastjson.Value.
func arenaSet(arena *fastjson.Arena, o *fastjson.Value, key string, value interface{}) {
	var v *fastjson.Value

	switch value := value.(type) {
	case string:
		v = arena.NewString(value)
	case []byte:
		v = arenaNewHex(arena, value)
	case sortition.ID:
		v = arenaNewHex(arena, value[:])
	case sortition.Seed:
		v = arenaNewHex(arena, value[:])
	case int:
		v = arena.NewNumberInt(value)
	case uint64:
		v = arenaNewUint(arena, value)
	case bool:
		if value {
			v = arena.NewTrue()
		} else {
			v = arena.NewFalse()
		}
	case *fastjson.Value:
		v = value
	default:
		panic("Unsupported type")
	}

	o.Set(key, v)
}

func arenaSets(arena *fastjson.Arena, o *fastjson.Value, kvPair ...interface{}) {
	for i := 0; i < len(kvPair); i += 2 {
		arenaSet(arena, o, kvPair[i].(string), kvPair[i+1])
	}
}

func arenaNewUint(arena *fastjson.Arena, u uint64) *fastjson.Value {
	return arena.NewNumberString(strconv.FormatUint(u, 10))
}

func arenaNewHex(arena *fastjson.Arena, h []byte) *fastjson.Value {
	return arena.NewString(hex.EncodeToString(h))
}
