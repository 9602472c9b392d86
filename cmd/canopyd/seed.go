// Copyright 2025 Verdant Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"
	"github.com/verdantlabs/canopy/core"
	"github.com/verdantlabs/canopy/storage/badger"
)

var seedParagraphs = []string{
	"The lighthouse keeper kept a weathered journal of every ship that passed the point, noting the weather, the tide and the flags each vessel flew.",
	"Over the course of a single summer the meadow behind the farmhouse changed from pale green to a riot of clover, vetch and tall yellow grass.",
	"Early computers filled entire rooms, yet their arithmetic was slower than the cheapest device that now fits in a coat pocket.",
	"The recipe had been passed down four generations, and every cook before her had added one ingredient and removed another.",
	"Migration routes of the arctic tern span from pole to pole, the longest regular journey of any animal on the planet.",
	"A good map tells you not only where things are but which things its maker believed were worth recording at all.",
	"The library's oldest manuscript was bound in oak boards and still smelled faintly of the monastery cellar where it spent four hundred years.",
	"City planners argued for a decade over the bridge, and in the end the river settled the question by changing course.",
	"The violin maker explained that the wood must be older than the luthier, or the instrument will never settle into its voice.",
	"Deep-sea vents support whole ecosystems that have never seen sunlight, running on chemistry instead of photosynthesis.",
	"Each autumn the orchard produced one tree's worth of perfect apples and nine trees' worth of cider fruit, and nobody could predict which tree it would be.",
	"The observatory's dome opened with a sound like a ship's hull, and the evening's first stars appeared in the slot of sky.",
}

// seedCommand creates parsed objects with matching pending jobs so a local
// pipeline run has work to pick up.
func seedCommand(c *cli.Context) error {
	ctx := c.Context

	backend, err := badger.OpenBackend(c.String("db"), false)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer backend.Close()

	repos, err := badger.NewRepositories(backend)
	if err != nil {
		return fmt.Errorf("failed to create repositories: %w", err)
	}
	defer repos.Close()

	count := c.Int("count")
	for i := 0; i < count; i++ {
		// Three rotating paragraphs per object, enough for a few chunks.
		var paragraphs []string
		for j := 0; j < 3; j++ {
			paragraphs = append(paragraphs, seedParagraphs[(i*3+j)%len(seedParagraphs)])
		}

		object, err := repos.Objects.CreateObject(ctx, &core.ContentObject{
			Type:          core.ObjectTypeNote,
			Title:         fmt.Sprintf("Seed note %d", i+1),
			SourceLocator: fmt.Sprintf("seed://note/%d", i+1),
			Status:        core.StatusParsed,
			CleanedText:   strings.Join(paragraphs, "\n\n"),
		})
		if err != nil {
			return fmt.Errorf("failed to create object %d: %w", i+1, err)
		}

		_, err = repos.Jobs.CreateJob(ctx, &core.IngestionJob{
			ObjectId:       object.Id,
			Status:         core.JobStatusProcessing,
			ChunkingStatus: core.ChunkingStatusPending,
		})
		if err != nil {
			return fmt.Errorf("failed to create job for object %d: %w", object.Id, err)
		}
	}

	fmt.Printf("seeded %d parsed objects with pending jobs\n", count)
	return nil
}
