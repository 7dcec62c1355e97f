package main

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/lestrrat-go/dtd/sax"
	"github.com/samber/lo"
)

// counter passes every event on to the wrapped handler and counts
// declarations by kind.
type counter struct {
	sax.Handler
	counts map[string]int
}

func newCounter(h sax.Handler) *counter {
	return &counter{Handler: h, counts: make(map[string]int)}
}

func (c *counter) String() string {
	kinds := lo.Keys(c.counts)
	slices.Sort(kinds)
	return strings.Join(lo.Map(kinds, func(kind string, _ int) string {
		return fmt.Sprintf("%d %s", c.counts[kind], kind)
	}), ", ")
}

func (c *counter) StartContentModel(ctx context.Context, name string, typ sax.ContentModelType) error {
	c.counts["element"]++
	return c.Handler.StartContentModel(ctx, name, typ)
}

func (c *counter) AttributeDecl(ctx context.Context, elemName, attrName string, typ sax.AttributeType, enum sax.Enumeration, use sax.AttributeUse, defaultValue string) error {
	c.counts["attribute"]++
	return c.Handler.AttributeDecl(ctx, elemName, attrName, typ, enum, use, defaultValue)
}

func (c *counter) InternalGeneralEntityDecl(ctx context.Context, name, value string) error {
	c.counts["entity"]++
	return c.Handler.InternalGeneralEntityDecl(ctx, name, value)
}

func (c *counter) ExternalGeneralEntityDecl(ctx context.Context, name, publicID, systemID string) error {
	c.counts["entity"]++
	return c.Handler.ExternalGeneralEntityDecl(ctx, name, publicID, systemID)
}

func (c *counter) UnparsedEntityDecl(ctx context.Context, name, publicID, systemID, notationName string) error {
	c.counts["entity"]++
	return c.Handler.UnparsedEntityDecl(ctx, name, publicID, systemID, notationName)
}

func (c *counter) InternalParameterEntityDecl(ctx context.Context, name, value string) error {
	c.counts["parameter entity"]++
	return c.Handler.InternalParameterEntityDecl(ctx, name, value)
}

func (c *counter) ExternalParameterEntityDecl(ctx context.Context, name, publicID, systemID string) error {
	c.counts["parameter entity"]++
	return c.Handler.ExternalParameterEntityDecl(ctx, name, publicID, systemID)
}

func (c *counter) NotationDecl(ctx context.Context, name, publicID, systemID string) error {
	c.counts["notation"]++
	return c.Handler.NotationDecl(ctx, name, publicID, systemID)
}

func (c *counter) Warning(ctx context.Context, err error) error {
	c.counts["warning"]++
	return c.Handler.Warning(ctx, err)
}

func (c *counter) Error(ctx context.Context, err error) error {
	c.counts["error"]++
	return c.Handler.Error(ctx, err)
}
