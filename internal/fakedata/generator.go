// Package fakedata produces deterministic synthetic datasets for load
// testing and demos, writes them out as batched SQL insert files, and loads
// such files into a database.
package fakedata

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/brainbox/backend/internal/models"
	"github.com/brainbox/backend/pkg/utils"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
)

// Config controls dataset shape. All randomness flows from Seed, so the same
// config always yields the same dataset.
type Config struct {
	Seed           int64
	Users          int
	FoldersPerUser int
	FilesPerUser   int
	SharesPerFile  int

	// Password is the plaintext every generated user gets; it is hashed once
	// and the hash reused, since bcrypt per user dominates generation time.
	Password string
}

func DefaultConfig() Config {
	return Config{
		Seed:           1,
		Users:          50,
		FoldersPerUser: 5,
		FilesPerUser:   10,
		SharesPerFile:  2,
		Password:       "Brainbox1!",
	}
}

// Dataset holds generated rows in insert order: parents before children.
type Dataset struct {
	Users       []models.User
	Profiles    []models.UserProfile
	Folders     []models.Folder
	Files       []models.File
	SharedFiles []models.SharedFile
}

type Generator struct {
	cfg   Config
	rng   *rand.Rand
	faker *gofakeit.Faker

	usedUsernames map[string]int
	usedEmails    map[string]int
}

func NewGenerator(cfg Config) *Generator {
	return &Generator{
		cfg:           cfg,
		rng:           rand.New(rand.NewSource(cfg.Seed)),
		faker:         gofakeit.New(uint64(cfg.Seed)),
		usedUsernames: map[string]int{},
		usedEmails:    map[string]int{},
	}
}

const (
	parentFolderProbability  = 0.7
	filePlacementProbability = 0.7
)

func (g *Generator) Generate() (*Dataset, error) {
	hash, err := utils.HashPassword(g.cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing shared password: %w", err)
	}

	ds := &Dataset{}

	for i := 0; i < g.cfg.Users; i++ {
		user := g.generateUser(hash)
		ds.Users = append(ds.Users, user)
		ds.Profiles = append(ds.Profiles, g.generateProfile(user))

		folders := g.generateFolders(user)
		ds.Folders = append(ds.Folders, folders...)
		ds.Files = append(ds.Files, g.generateFiles(user, folders)...)
	}

	ds.SharedFiles = g.generateShares(ds.Users, ds.Files)
	return ds, nil
}

func (g *Generator) generateUser(passwordHash string) models.User {
	createdAt := g.timestamp()
	return models.User{
		BaseModel: models.BaseModel{
			ID:        g.uuid(),
			CreatedAt: createdAt,
			UpdatedAt: g.laterThan(createdAt),
		},
		Username:     g.dedup(g.usedUsernames, g.faker.Username()),
		Email:        g.dedupEmail(g.faker.Email()),
		PasswordHash: passwordHash,
		Role:         models.UserRoleUser,
		IsActive:     true,
	}
}

func (g *Generator) generateProfile(user models.User) models.UserProfile {
	var birthday *time.Time
	if g.rng.Float64() < 0.5 {
		b := g.faker.DateRange(
			time.Date(1950, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2005, 12, 31, 0, 0, 0, 0, time.UTC),
		)
		birthday = &b
	}

	var website *string
	if g.rng.Float64() < 0.5 {
		w := g.faker.URL()
		website = &w
	}

	return models.UserProfile{
		BaseModel: models.BaseModel{
			ID:        g.uuid(),
			CreatedAt: user.CreatedAt,
			UpdatedAt: user.CreatedAt,
		},
		UserID:   user.ID,
		Bio:      g.faker.Sentence(10),
		Birthday: birthday,
		Website:  website,
		DarkMode: g.rng.Float64() < 0.5,
		PageSize: g.faker.Number(10, 50),
	}
}

func (g *Generator) generateFolders(user models.User) []models.Folder {
	usedNames := map[string]int{}
	folders := make([]models.Folder, 0, g.cfg.FoldersPerUser)

	for i := 0; i < g.cfg.FoldersPerUser; i++ {
		createdAt := g.laterThan(user.CreatedAt)
		folder := models.Folder{
			BaseModel: models.BaseModel{
				ID:        g.uuid(),
				CreatedAt: createdAt,
				UpdatedAt: createdAt,
			},
			Name:   g.dedup(usedNames, g.faker.ProductName()),
			UserID: user.ID,
		}

		// Parents are picked among the user's earlier folders, which keeps
		// the hierarchy acyclic without any walking.
		if len(folders) > 0 && g.rng.Float64() < parentFolderProbability {
			parent := folders[g.rng.Intn(len(folders))]
			folder.ParentFolderID = &parent.ID
		}

		folders = append(folders, folder)
	}
	return folders
}

func (g *Generator) generateFiles(user models.User, folders []models.Folder) []models.File {
	usedNames := map[string]int{}
	files := make([]models.File, 0, g.cfg.FilesPerUser)

	for i := 0; i < g.cfg.FilesPerUser; i++ {
		createdAt := g.laterThan(user.CreatedAt)
		file := models.File{
			BaseModel: models.BaseModel{
				ID:        g.uuid(),
				CreatedAt: createdAt,
				UpdatedAt: g.laterThan(createdAt),
			},
			Name:    g.dedup(usedNames, g.faker.BookTitle()),
			Content: g.faker.Paragraph(g.faker.Number(1, 4), g.faker.Number(2, 6), g.faker.Number(5, 15), "\n"),
			UserID:  user.ID,
		}

		if len(folders) > 0 && g.rng.Float64() < filePlacementProbability {
			folder := folders[g.rng.Intn(len(folders))]
			file.FolderID = &folder.ID
		}

		files = append(files, file)
	}
	return files
}

func (g *Generator) generateShares(users []models.User, files []models.File) []models.SharedFile {
	if len(users) < 2 {
		return nil
	}

	shares := make([]models.SharedFile, 0, len(files)*g.cfg.SharesPerFile)
	seen := map[[2]uuid.UUID]bool{}

	for _, file := range files {
		for i := 0; i < g.cfg.SharesPerFile; i++ {
			grantee := users[g.rng.Intn(len(users))]
			for grantee.ID == file.UserID {
				grantee = users[g.rng.Intn(len(users))]
			}

			pair := [2]uuid.UUID{grantee.ID, file.ID}
			if seen[pair] {
				continue
			}
			seen[pair] = true

			permission := models.SharePermissionRead
			if g.rng.Float64() < 0.5 {
				permission = models.SharePermissionReadWrite
			}

			createdAt := g.laterThan(file.CreatedAt)
			shares = append(shares, models.SharedFile{
				BaseModel: models.BaseModel{
					ID:        g.uuid(),
					CreatedAt: createdAt,
					UpdatedAt: createdAt,
				},
				UserID:     grantee.ID,
				FileID:     file.ID,
				Permission: permission,
			})
		}
	}
	return shares
}

// dedup returns base the first time it is seen and "base-N" afterwards, so
// generated names stay unique without discarding samples.
func (g *Generator) dedup(used map[string]int, base string) string {
	n := used[base]
	used[base] = n + 1
	if n == 0 {
		return base
	}
	return fmt.Sprintf("%s-%d", base, n+1)
}

func (g *Generator) dedupEmail(email string) string {
	n := g.usedEmails[email]
	g.usedEmails[email] = n + 1
	if n == 0 {
		return email
	}
	return fmt.Sprintf("%d.%s", n+1, email)
}

func (g *Generator) uuid() uuid.UUID {
	var b [16]byte
	g.rng.Read(b[:])
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return uuid.UUID(b)
}

var timestampBase = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func (g *Generator) timestamp() time.Time {
	return timestampBase.Add(time.Duration(g.rng.Int63n(int64(365 * 24 * time.Hour))))
}

func (g *Generator) laterThan(t time.Time) time.Time {
	return t.Add(time.Duration(g.rng.Int63n(int64(30 * 24 * time.Hour))))
}
