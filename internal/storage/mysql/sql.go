package mysql

// Identity is UNIQUE(name, location_query); a repeated pass for the same
// pair updates the mutable fields in place.
const upsertVenueSQL = `
INSERT INTO venues
  (name, location_query, address, rating, reviews, website, instagram, status, verification_log)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  address          = VALUES(address),
  rating           = VALUES(rating),
  reviews          = VALUES(reviews),
  website          = VALUES(website),
  instagram        = VALUES(instagram),
  status           = VALUES(status),
  verification_log = VALUES(verification_log),
  updated_at       = CURRENT_TIMESTAMP
`

const insertMissSQL = `
INSERT INTO scrape_misses (name, location_query, stage, reason)
VALUES (?, ?, ?, ?)
ON DUPLICATE KEY UPDATE stage = VALUES(stage), reason = VALUES(reason), seen_at = CURRENT_TIMESTAMP
`

const findVenueSQL = `
SELECT id, name, location_query, address, rating, reviews, website, instagram, status, verification_log
FROM venues
WHERE name = ? AND location_query = ?
`

// Confirmed records first, then best-rated; NULL rating sorts as zero.
const listVenuesSQL = `
SELECT id, name, location_query, address, rating, reviews, website, instagram, status, verification_log
FROM venues
WHERE location_query = ?
ORDER BY (status = 'confirmed') DESC, COALESCE(rating, 0) DESC, name
`
