package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"
)

// GetProfile returns the single about-me row.
func (s *Store) GetProfile(ctx context.Context) (Profile, error) {
	var p Profile
	err := s.db.QueryRowContext(ctx, `
		SELECT name, job_title, summary, email, phone, location, linkedin, website, github, profile_image
		FROM profile WHERE id = 1`,
	).Scan(&p.Name, &p.JobTitle, &p.Summary, &p.Email, &p.Phone, &p.Location,
		&p.LinkedIn, &p.Website, &p.GitHub, &p.ProfileImage)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	if err != nil {
		return p, fmt.Errorf("query profile: %w", err)
	}
	return p, nil
}

// UpdateProfile replaces the about-me row.
func (s *Store) UpdateProfile(ctx context.Context, p Profile) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE profile
		SET name = ?, job_title = ?, summary = ?, email = ?, phone = ?,
		    location = ?, linkedin = ?, website = ?, github = ?, profile_image = ?
		WHERE id = 1`),
		p.Name, p.JobTitle, p.Summary, p.Email, p.Phone,
		p.Location, p.LinkedIn, p.Website, p.GitHub, p.ProfileImage,
	)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

// ListExperience returns work history in display order, then newest first.
func (s *Store) ListExperience(ctx context.Context) ([]Experience, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, job_title, company, start_date, end_date, location, description, order_index
		FROM experience
		ORDER BY order_index, start_date DESC`)
	if err != nil {
		return nil, fmt.Errorf("query experience: %w", err)
	}
	defer rows.Close()

	var list []Experience
	for rows.Next() {
		var e Experience
		var description string
		if err := rows.Scan(&e.ID, &e.JobTitle, &e.Company, &e.StartDate, &e.EndDate, &e.Location, &description, &e.OrderIndex); err != nil {
			return nil, fmt.Errorf("scan experience: %w", err)
		}
		e.Description = decodeBullets(description)
		list = append(list, e)
	}
	return list, rows.Err()
}

// SaveExperience inserts when e.ID is zero, updates otherwise.
func (s *Store) SaveExperience(ctx context.Context, e Experience) error {
	description, err := encodeBullets(e.Description)
	if err != nil {
		return err
	}

	if e.ID == 0 {
		_, err = s.db.ExecContext(ctx, s.rebind(`
			INSERT INTO experience (job_title, company, start_date, end_date, location, description, order_index)
			VALUES (?, ?, ?, ?, ?, ?, ?)`),
			e.JobTitle, e.Company, e.StartDate, e.EndDate, e.Location, description, e.OrderIndex)
	} else {
		_, err = s.db.ExecContext(ctx, s.rebind(`
			UPDATE experience
			SET job_title = ?, company = ?, start_date = ?, end_date = ?, location = ?, description = ?
			WHERE id = ?`),
			e.JobTitle, e.Company, e.StartDate, e.EndDate, e.Location, description, e.ID)
	}
	if err != nil {
		return fmt.Errorf("save experience: %w", err)
	}
	return nil
}

// DeleteExperience removes a work-history entry.
func (s *Store) DeleteExperience(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "experience", id)
}

// UpdateExperienceOrder rewrites order_index to match the given id order.
// Applied in one transaction so a partial reorder never persists.
func (s *Store) UpdateExperienceOrder(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: empty order", ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for index, id := range ids {
		if _, err := tx.ExecContext(ctx, s.rebind(`UPDATE experience SET order_index = ? WHERE id = ?`), index, id); err != nil {
			return fmt.Errorf("set order for %d: %w", id, err)
		}
	}
	return tx.Commit()
}

// ListEducation returns education entries, newest first.
func (s *Store) ListEducation(ctx context.Context) ([]Education, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, degree, institution, start_date, end_date, location, description
		FROM education ORDER BY start_date DESC`)
	if err != nil {
		return nil, fmt.Errorf("query education: %w", err)
	}
	defer rows.Close()

	var list []Education
	for rows.Next() {
		var e Education
		var description string
		if err := rows.Scan(&e.ID, &e.Degree, &e.Institution, &e.StartDate, &e.EndDate, &e.Location, &description); err != nil {
			return nil, fmt.Errorf("scan education: %w", err)
		}
		e.Description = decodeBullets(description)
		list = append(list, e)
	}
	return list, rows.Err()
}

// SaveEducation inserts when e.ID is zero, updates otherwise.
func (s *Store) SaveEducation(ctx context.Context, e Education) error {
	description, err := encodeBullets(e.Description)
	if err != nil {
		return err
	}

	if e.ID == 0 {
		_, err = s.db.ExecContext(ctx, s.rebind(`
			INSERT INTO education (degree, institution, start_date, end_date, location, description)
			VALUES (?, ?, ?, ?, ?, ?)`),
			e.Degree, e.Institution, e.StartDate, e.EndDate, e.Location, description)
	} else {
		_, err = s.db.ExecContext(ctx, s.rebind(`
			UPDATE education
			SET degree = ?, institution = ?, start_date = ?, end_date = ?, location = ?, description = ?
			WHERE id = ?`),
			e.Degree, e.Institution, e.StartDate, e.EndDate, e.Location, description, e.ID)
	}
	if err != nil {
		return fmt.Errorf("save education: %w", err)
	}
	return nil
}

// DeleteEducation removes an education entry.
func (s *Store) DeleteEducation(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "education", id)
}

// ListSkills returns skills ordered for category grouping.
func (s *Store) ListSkills(ctx context.Context) ([]Skill, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, category, name, level FROM skills ORDER BY category, level DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("query skills: %w", err)
	}
	defer rows.Close()

	var list []Skill
	for rows.Next() {
		var sk Skill
		if err := rows.Scan(&sk.ID, &sk.Category, &sk.Name, &sk.Level); err != nil {
			return nil, fmt.Errorf("scan skill: %w", err)
		}
		list = append(list, sk)
	}
	return list, rows.Err()
}

// SaveSkill inserts when sk.ID is zero, updates otherwise.
func (s *Store) SaveSkill(ctx context.Context, sk Skill) error {
	var err error
	if sk.ID == 0 {
		_, err = s.db.ExecContext(ctx, s.rebind(`
			INSERT INTO skills (category, name, level) VALUES (?, ?, ?)`),
			sk.Category, sk.Name, sk.Level)
	} else {
		_, err = s.db.ExecContext(ctx, s.rebind(`
			UPDATE skills SET category = ?, name = ?, level = ? WHERE id = ?`),
			sk.Category, sk.Name, sk.Level, sk.ID)
	}
	if err != nil {
		return fmt.Errorf("save skill: %w", err)
	}
	return nil
}

// DeleteSkill removes a skill.
func (s *Store) DeleteSkill(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "skills", id)
}

// ListAchievements returns achievements, newest first.
func (s *Store) ListAchievements(ctx context.Context) ([]Achievement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, date FROM achievements ORDER BY date DESC`)
	if err != nil {
		return nil, fmt.Errorf("query achievements: %w", err)
	}
	defer rows.Close()

	var list []Achievement
	for rows.Next() {
		var a Achievement
		if err := rows.Scan(&a.ID, &a.Title, &a.Description, &a.Date); err != nil {
			return nil, fmt.Errorf("scan achievement: %w", err)
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// SaveAchievement inserts when a.ID is zero, updates otherwise.
func (s *Store) SaveAchievement(ctx context.Context, a Achievement) error {
	var err error
	if a.ID == 0 {
		_, err = s.db.ExecContext(ctx, s.rebind(`
			INSERT INTO achievements (title, description, date) VALUES (?, ?, ?)`),
			a.Title, a.Description, a.Date)
	} else {
		_, err = s.db.ExecContext(ctx, s.rebind(`
			UPDATE achievements SET title = ?, description = ?, date = ? WHERE id = ?`),
			a.Title, a.Description, a.Date, a.ID)
	}
	if err != nil {
		return fmt.Errorf("save achievement: %w", err)
	}
	return nil
}

// DeleteAchievement removes an achievement.
func (s *Store) DeleteAchievement(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "achievements", id)
}

// ListProjects returns portfolio projects.
func (s *Store) ListProjects(ctx context.Context) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, technologies, link, image FROM projects ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	var list []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.Technologies, &p.Link, &p.Image); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// SaveProject inserts when p.ID is zero, updates otherwise.
func (s *Store) SaveProject(ctx context.Context, p Project) error {
	var err error
	if p.ID == 0 {
		_, err = s.db.ExecContext(ctx, s.rebind(`
			INSERT INTO projects (title, description, technologies, link, image)
			VALUES (?, ?, ?, ?, ?)`),
			p.Title, p.Description, p.Technologies, p.Link, p.Image)
	} else {
		_, err = s.db.ExecContext(ctx, s.rebind(`
			UPDATE projects SET title = ?, description = ?, technologies = ?, link = ?, image = ?
			WHERE id = ?`),
			p.Title, p.Description, p.Technologies, p.Link, p.Image, p.ID)
	}
	if err != nil {
		return fmt.Errorf("save project: %w", err)
	}
	return nil
}

// DeleteProject removes a project.
func (s *Store) DeleteProject(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "projects", id)
}

// ListCertificates returns certificates and conferences, newest first.
func (s *Store) ListCertificates(ctx context.Context) ([]Certificate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, date, type, issuer, url
		FROM certificates_conferences ORDER BY date DESC`)
	if err != nil {
		return nil, fmt.Errorf("query certificates: %w", err)
	}
	defer rows.Close()

	var list []Certificate
	for rows.Next() {
		var c Certificate
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.Date, &c.Type, &c.Issuer, &c.URL); err != nil {
			return nil, fmt.Errorf("scan certificate: %w", err)
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// SaveCertificate inserts when c.ID is zero, updates otherwise.
func (s *Store) SaveCertificate(ctx context.Context, c Certificate) error {
	var err error
	if c.ID == 0 {
		_, err = s.db.ExecContext(ctx, s.rebind(`
			INSERT INTO certificates_conferences (title, description, date, type, issuer, url)
			VALUES (?, ?, ?, ?, ?, ?)`),
			c.Title, c.Description, c.Date, c.Type, c.Issuer, c.URL)
	} else {
		_, err = s.db.ExecContext(ctx, s.rebind(`
			UPDATE certificates_conferences
			SET title = ?, description = ?, date = ?, type = ?, issuer = ?, url = ?
			WHERE id = ?`),
			c.Title, c.Description, c.Date, c.Type, c.Issuer, c.URL, c.ID)
	}
	if err != nil {
		return fmt.Errorf("save certificate: %w", err)
	}
	return nil
}

// DeleteCertificate removes a certificate entry.
func (s *Store) DeleteCertificate(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "certificates_conferences", id)
}

// GetSettings returns the admin username and site theme.
func (s *Store) GetSettings(ctx context.Context) (Settings, error) {
	var st Settings
	err := s.db.QueryRowContext(ctx, `SELECT username, theme FROM admin_settings WHERE id = 1`).
		Scan(&st.Username, &st.Theme)
	if err == sql.ErrNoRows {
		return st, ErrNotFound
	}
	if err != nil {
		return st, fmt.Errorf("query settings: %w", err)
	}
	return st, nil
}

// VerifyAdmin checks a login attempt against the stored bcrypt hash.
func (s *Store) VerifyAdmin(ctx context.Context, username, password string) bool {
	var storedUser, storedHash string
	err := s.db.QueryRowContext(ctx, `SELECT username, password FROM admin_settings WHERE id = 1`).
		Scan(&storedUser, &storedHash)
	if err != nil {
		log.Printf("[store] Admin lookup failed: %v", err)
		return false
	}
	if username != storedUser {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(password)) == nil
}

// UpdatePassword stores a new bcrypt-hashed admin password.
func (s *Store) UpdatePassword(ctx context.Context, password string) error {
	if len(password) < 8 {
		return fmt.Errorf("%w: password too short", ErrInvalidInput)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, s.rebind(`UPDATE admin_settings SET password = ? WHERE id = 1`), string(hash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// UpdateTheme persists the light/dark site theme.
func (s *Store) UpdateTheme(ctx context.Context, theme string) error {
	if theme != "light" && theme != "dark" {
		return fmt.Errorf("%w: unknown theme %q", ErrInvalidInput, theme)
	}
	if _, err := s.db.ExecContext(ctx, s.rebind(`UPDATE admin_settings SET theme = ? WHERE id = 1`), theme); err != nil {
		return fmt.Errorf("update theme: %w", err)
	}
	return nil
}

func (s *Store) deleteByID(ctx context.Context, table string, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: bad id", ErrInvalidInput)
	}
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM `+table+` WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func encodeBullets(bullets []string) (string, error) {
	if bullets == nil {
		bullets = []string{}
	}
	raw, err := json.Marshal(bullets)
	if err != nil {
		return "", fmt.Errorf("marshal description: %w", err)
	}
	return string(raw), nil
}

func decodeBullets(raw string) []string {
	if raw == "" {
		return nil
	}
	var bullets []string
	if err := json.Unmarshal([]byte(raw), &bullets); err != nil {
		// Legacy rows stored plain text.
		return []string{raw}
	}
	return bullets
}
