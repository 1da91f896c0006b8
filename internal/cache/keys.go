package cache

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/forPelevin/syncsieve/internal/types"
)

// KeyInput identifies one scoring run: the source file as it was on disk,
// the chunk bounds and the stage parameters.
type KeyInput struct {
	Source  string
	Size    int64
	ModTime time.Time
	Chunk   *types.Chunk
	Params  string
}

// KeyInputFor stats path to fill Size and ModTime.
func KeyInputFor(path string, chunk *types.Chunk, params string) (KeyInput, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return KeyInput{}, fmt.Errorf("stat %s: %w", path, err)
	}
	return KeyInput{Source: path, Size: fi.Size(), ModTime: fi.ModTime(), Chunk: chunk, Params: params}, nil
}

func TrackKey(in KeyInput) string {
	parts := []string{
		in.Source,
		strconv.FormatInt(in.Size, 10),
		strconv.FormatInt(in.ModTime.UnixNano(), 10),
		in.Params,
	}
	if in.Chunk != nil {
		parts = append(parts,
			strconv.FormatFloat(in.Chunk.Start, 'f', 3, 64),
			strconv.FormatFloat(in.Chunk.End, 'f', 3, 64),
		)
	}
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(strings.Join(parts, "|")))
	return fmt.Sprintf("syncsieve:tracks:%s", id)
}
