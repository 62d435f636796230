package main

import (
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/irrigo/internal/storage"
)

// InitArchive selects the archive for committed documents. It returns nil
// when archiving is off.
func InitArchive(env Environment) storage.Storage {
	switch env.Archive {
	case "spaces":
		spacesStorage, err := storage.NewSpacesStorage(
			env.SpacesEndpoint,
			env.SpacesRegion,
			env.SpacesBucket,
			env.SpacesCDNURL,
			env.SpacesAccessKey,
			env.SpacesSecretKey,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize Spaces storage")
		}
		log.Info().Str("bucket", env.SpacesBucket).Msg("archiving to DigitalOcean Spaces")
		return spacesStorage
	case "local":
		log.Info().Str("dir", env.ArchivePath).Msg("archiving to local directory")
		return storage.NewLocalStorage(env.ArchivePath)
	case "none", "":
		return nil
	}
	log.Fatal().Str("archive", env.Archive).Msg("ARCHIVE must be none, local or spaces")
	return nil
}
