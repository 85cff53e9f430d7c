package globals

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/viant/closurecap/mockintrospect"
)

func TestBuild_OrdersPriorityGlobalsFirst(t *testing.T) {
	in := mockintrospect.New()

	objectProto := mockintrospect.NewObject()
	objectCtor := mockintrospect.NewObject()
	objectCtor.Props.Data("prototype", objectProto)

	arrayCtor := mockintrospect.NewObject()

	in.AddGlobal("Array", arrayCtor)
	in.AddGlobal("Object", objectCtor)
	in.AddGlobal("console", mockintrospect.NewObject())

	seeds := Build(in, in, nil, nil)

	assert.GreaterOrEqual(t, len(seeds), 3)
	assert.Equal(t, "global.Object", seeds[0].Expr)
	assert.Equal(t, "global.Array", seeds[1].Expr)

	var sawConsole, sawObjectPrototype bool
	for _, s := range seeds {
		if s.Expr == "global.console" {
			sawConsole = true
		}
		if s.Expr == "global.Object.prototype" {
			sawObjectPrototype = true
		}
	}
	assert.True(t, sawConsole)
	assert.True(t, sawObjectPrototype)
}

func TestBuild_SkipsDeprecatedAliases(t *testing.T) {
	in := mockintrospect.New()
	in.AddGlobal("GLOBAL", mockintrospect.NewObject())
	in.AddGlobal("root", mockintrospect.NewObject())
	in.AddGlobal("process", mockintrospect.NewObject())

	seeds := Build(in, in, nil, nil)
	for _, s := range seeds {
		assert.NotEqual(t, "global.GLOBAL", s.Expr)
		assert.NotEqual(t, "global.root", s.Expr)
	}
}

func TestBuild_GeneratorFunctionPrototypePair(t *testing.T) {
	in := mockintrospect.New()
	genProto := mockintrospect.NewObject()
	genProtoProto := mockintrospect.NewObject()
	genProto.Proto = genProtoProto
	genFn := &mockintrospect.Function{Proto: genProto}

	seeds := Build(in, in, genFn, nil)

	var sawGenProto, sawGenProtoProto bool
	for _, s := range seeds {
		if s.Expr == "Object.getPrototypeOf(function*(){})" {
			sawGenProto = true
		}
		if s.Expr == "Object.getPrototypeOf(Object.getPrototypeOf(function*(){}))" {
			sawGenProtoProto = true
		}
	}
	assert.True(t, sawGenProto)
	assert.True(t, sawGenProtoProto)
}

func TestBuild_SeedsIteratorSymbolByIdentity(t *testing.T) {
	in := mockintrospect.New()
	iter := mockintrospect.NewObject()

	seeds := Build(in, in, nil, iter)

	var found *Seed
	for i := range seeds {
		if in.Identity(seeds[i].Value, iter) {
			found = &seeds[i]
		}
	}
	if assert.NotNil(t, found) {
		assert.Equal(t, "Symbol.iterator", found.Expr)
	}
}

func TestBuild_OmitsIteratorSymbolWhenNil(t *testing.T) {
	in := mockintrospect.New()
	seeds := Build(in, in, nil, nil)
	for _, s := range seeds {
		assert.NotEqual(t, "Symbol.iterator", s.Expr)
	}
}
