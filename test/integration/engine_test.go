// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Permtree Contributors

//go:build integration

package integration

import (
	"context"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/permtree/permtree/internal/config"
	"github.com/permtree/permtree/internal/contextset"
	"github.com/permtree/permtree/internal/engine"
	"github.com/permtree/permtree/internal/event"
	"github.com/permtree/permtree/internal/model"
	"github.com/permtree/permtree/internal/node"
	"github.com/permtree/permtree/internal/resolver"
	"github.com/permtree/permtree/internal/storage/flatfile"
)

var _ = Describe("Engine with flat-file storage", func() {
	var (
		ctx     context.Context
		dataDir string
		eng     *engine.Engine
	)

	newEngine := func(dir string) *engine.Engine {
		store, err := flatfile.New(dir)
		Expect(err).NotTo(HaveOccurred())
		cfg := config.Default()
		cfg.Storage.Path = dir
		return engine.New(cfg, store)
	}

	BeforeEach(func() {
		ctx = context.Background()
		dataDir = GinkgoT().TempDir()
		eng = newEngine(dataDir)
	})

	Describe("persistence round trips", func() {
		It("persists a user and restores the same effective permissions", func() {
			id := uuid.New()
			u := eng.UserByUUID(id)
			u.SetUsername("steve")
			u.SetNode(node.MakeGroupNode("admin").MustBuild())
			u.SetNode(node.NewBuilder("essentials.fly").WithValue(false).
				WithContext(contextset.Of("world", "nether").Immutable()).MustBuild())

			admin := eng.Groups().GetOrMake("admin")
			admin.SetNode(node.NewBuilder("essentials.*").MustBuild())

			Expect(eng.SaveUser(ctx, u)).To(Succeed())
			Expect(eng.SaveGroup(ctx, admin)).To(Succeed())

			fresh := newEngine(dataDir)
			Expect(fresh.LoadAllGroups(ctx)).To(Succeed())
			restored, err := fresh.LoadUser(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(restored.Username()).To(Equal("steve"))

			nether := contextset.Of("world", "nether").Immutable()
			Expect(fresh.CheckPermission(restored, nether, "essentials.fly")).
				To(Equal(resolver.False))
			Expect(fresh.CheckPermission(restored, contextset.Empty, "essentials.fly")).
				To(Equal(resolver.True))
			Expect(fresh.CheckPermission(restored, contextset.Empty, "essentials.heal")).
				To(Equal(resolver.True), "the wildcard grant survives the round trip")
		})

		It("loads missing users as empty rather than failing", func() {
			u, err := eng.LoadUser(ctx, uuid.New())
			Expect(err).NotTo(HaveOccurred())
			Expect(u.EnduringSnapshot()).To(BeEmpty())
		})

		It("deletes groups from storage and cascades invalidation", func() {
			vip := eng.Groups().GetOrMake("vip")
			vip.SetNode(node.NewBuilder("essentials.fly").MustBuild())
			Expect(eng.SaveGroup(ctx, vip)).To(Succeed())

			u := eng.UserByUUID(uuid.New())
			u.SetNode(node.MakeGroupNode("vip").MustBuild())
			Expect(eng.CheckPermission(u, contextset.Empty, "essentials.fly")).
				To(Equal(resolver.True))

			Expect(eng.DeleteGroup(ctx, "vip")).To(Succeed())
			Expect(eng.Groups().GetIfLoaded("vip")).To(BeNil())
			Expect(eng.CheckPermission(u, contextset.Empty, "essentials.fly")).
				To(Equal(resolver.Undefined), "the dangling reference no longer grants anything")

			rec, err := eng.LoadGroup(ctx, "vip")
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.EnduringSnapshot()).To(BeEmpty())
		})
	})

	Describe("promotion ladders", func() {
		BeforeEach(func() {
			for _, name := range []string{"member", "mod", "admin"} {
				g := eng.Groups().GetOrMake(name)
				Expect(eng.SaveGroup(ctx, g)).To(Succeed())
			}
			staff := eng.Tracks().GetOrMake("staff")
			staff.SetGroups([]string{"member", "mod", "admin"})
			Expect(eng.SaveTrack(ctx, staff)).To(Succeed())
		})

		It("walks a user up the ladder and persists each step", func() {
			id := uuid.New()
			u := eng.UserByUUID(id)
			u.SetNode(node.MakeGroupNode("member").MustBuild())
			u.SetPrimaryGroup("member")

			res, err := eng.Promote(u, "staff", contextset.Empty, nil, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Outcome).To(Equal(model.PromotionSuccess))
			Expect(eng.SaveUser(ctx, u)).To(Succeed())

			fresh := newEngine(dataDir)
			Expect(fresh.LoadAllGroups(ctx)).To(Succeed())
			Expect(fresh.LoadAllTracks(ctx)).To(Succeed())
			restored, err := fresh.LoadUser(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(restored.PrimaryGroup()).To(Equal("mod"))

			res, err = fresh.Promote(restored, "staff", contextset.Empty, nil, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Outcome).To(Equal(model.PromotionSuccess))
			Expect(res.To).To(Equal("admin"))

			res, err = fresh.Promote(restored, "staff", contextset.Empty, nil, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Outcome).To(Equal(model.PromotionEndOfTrack))
		})

		It("publishes promotion events", func() {
			ch := eng.Bus().Subscribe(event.KindUserPromoted)
			defer eng.Bus().Unsubscribe(event.KindUserPromoted, ch)

			u := eng.UserByUUID(uuid.New())
			u.SetNode(node.MakeGroupNode("member").MustBuild())

			_, err := eng.Promote(u, "staff", contextset.Empty, nil, true)
			Expect(err).NotTo(HaveOccurred())

			var ev event.Event
			Eventually(ch).Should(Receive(&ev))
			Expect(ev.Track).To(Equal("staff"))
			Expect(ev.From).To(Equal("member"))
			Expect(ev.To).To(Equal("mod"))
		})
	})
})
