// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package builtin

import (
	"math/big"

	"github.com/emylabs/emy/abi"
	"github.com/emylabs/emy/emy"
	"github.com/emylabs/emy/xenv"
)

type methodKey struct {
	kind string
	abi.MethodID
}

var nativeMethods = make(map[methodKey]*NativeMethod)

// NativeMethod is an ABI method implemented in Go.
type NativeMethod struct {
	abi *abi.Method
	run func(env *xenv.Environment) ([]any, error)
}

// ABI returns the ABI of the method.
func (m *NativeMethod) ABI() *abi.Method {
	return m.abi
}

// Run executes the method and returns its encoded output.
func (m *NativeMethod) Run(env *xenv.Environment) ([]byte, error) {
	return env.Run(m.run)
}

// FindNativeMethod returns the method of the contract kind with the given id.
func FindNativeMethod(kind string, id abi.MethodID) (*NativeMethod, bool) {
	m, ok := nativeMethods[methodKey{kind, id}]
	return m, ok
}

type nativeDefine struct {
	name string
	run  func(env *xenv.Environment) ([]any, error)
}

func register(c *contract, defines []nativeDefine) {
	for _, def := range defines {
		method := c.MustMethod(def.name)
		nativeMethods[methodKey{c.name, method.ID()}] = &NativeMethod{
			abi: method,
			run: def.run,
		}
	}
}

func addressTopic(addr emy.Address) emy.Bytes32 {
	return emy.BytesToBytes32(addr.Bytes())
}

func uintTopic(v uint64) emy.Bytes32 {
	return emy.BytesToBytes32(new(big.Int).SetUint64(v).Bytes())
}
