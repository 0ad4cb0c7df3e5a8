package store

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	defaultAdminUser     = "admin"
	defaultAdminPassword = "admin123"
)

// seed fills empty tables with default site content so a fresh database
// serves a complete page instead of an empty shell. Tables that already
// hold rows are left alone.
func (s *Store) seed(ctx context.Context) error {
	if err := s.seedAdmin(ctx); err != nil {
		return err
	}
	if err := s.seedProfile(ctx); err != nil {
		return err
	}
	if err := s.seedExperience(ctx); err != nil {
		return err
	}
	if err := s.seedEducation(ctx); err != nil {
		return err
	}
	if err := s.seedSkills(ctx); err != nil {
		return err
	}
	if err := s.seedAchievements(ctx); err != nil {
		return err
	}
	return s.seedProjects(ctx)
}

func (s *Store) tableEmpty(ctx context.Context, table string) (bool, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&count); err != nil {
		return false, fmt.Errorf("count %s: %w", table, err)
	}
	return count == 0, nil
}

func (s *Store) seedAdmin(ctx context.Context) error {
	empty, err := s.tableEmpty(ctx, "admin_settings")
	if err != nil || !empty {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(defaultAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash default password: %w", err)
	}
	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO admin_settings (id, username, password, theme) VALUES (1, ?, ?, 'light')`),
		defaultAdminUser, string(hash))
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	return nil
}

func (s *Store) seedProfile(ctx context.Context) error {
	empty, err := s.tableEmpty(ctx, "profile")
	if err != nil || !empty {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO profile (id, name, job_title, summary, email, phone, location, linkedin, website, github, profile_image)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		"Prakersh Maheshwari",
		"Software Engineer",
		"I am seeking a position within a professional and dynamic firm where I can leverage my skills and knowledge to contribute to organizational objectives while continuously growing and advancing in my career.",
		"prakersh@live.com",
		"+91 9993556000",
		"Pune, India",
		"linkedin.com/in/prakersh",
		"prakersh.in",
		"github.com/prakersh",
		"assets/images/profile.jpg",
	)
	if err != nil {
		return fmt.Errorf("seed profile: %w", err)
	}
	return nil
}

func (s *Store) seedExperience(ctx context.Context) error {
	empty, err := s.tableEmpty(ctx, "experience")
	if err != nil || !empty {
		return err
	}
	entries := []Experience{
		{
			JobTitle:  "Specialist - Software Engineering",
			Company:   "LTIMindtree - Microsoft",
			StartDate: "07/2024",
			EndDate:   "Present",
			Location:  "Pune, India",
			Description: []string{
				"Worked on Automating and streamlining deployment workflows for HwDiagLnx. Wrote Deployment docs for team to follow.",
				"Deployed released version across clusters and Validate GDCO tickets it created.",
				"Integrated Intel QAT build and sign process in HwDiagLnx. Validated, Tested and End to end integrated Fieldiag for H100, A100 and Jasper.",
				"Created Pipeline for signing kernel modules and rpms for GB200 on Azure Linux 3.",
				"Worked on improving and streamlining build process and restructuring.",
				"Did multiple Linux and Windows deployments.",
				"Worked on implementing PDB diag module in HwDiagLnx.",
				"Worked on analyzing and Implementing fault codes in HwDiagLnx.",
			},
		},
		{
			JobTitle:  "Member Technical Staff",
			Company:   "Coriolis Technologies Pvt. Ltd.",
			StartDate: "06/2018",
			EndDate:   "02/2024",
			Location:  "Pune, India",
			Description: []string{
				"Created .rpm/.deb package for the product. Created required install, upgrade and uninstall scripts.",
				"Created systemd/sysvinit service for the product. Managed dependency and service ordering of product.service with dependent services.",
				"Integrated product with redhat pacemaker and wrote pacemaker resource agent to provide high availability for product.",
				"Automated workflows in Linux using python and bash scripts.",
				"Integrated product with Terraform provider. Worked on implementing CTE functionality in Ciphertrust terraform provider.",
				"Developed Multinode execution framework using Redis pub sub and key value store.",
				"Worked on adding additional functionality to existing c binaries based on client requirements.",
				"Implemented upgrade on reboot feature ensuring zero downtime and clean upgraded build post reboot.",
				"Wrote build.sh for products to simplify long build process.",
				"Led Scrum team for Program Increment, facilitating sprint retrospectives and PI evaluations.",
			},
			OrderIndex: 1,
		},
	}
	for _, e := range entries {
		if err := s.SaveExperience(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) seedEducation(ctx context.Context) error {
	empty, err := s.tableEmpty(ctx, "education")
	if err != nil || !empty {
		return err
	}
	return s.SaveEducation(ctx, Education{
		Degree:      "B.Tech in Computer Science & Engineering",
		Institution: "RGPV University",
		StartDate:   "2014",
		EndDate:     "2018",
		Location:    "Bhopal, India",
		Description: []string{
			"Graduated with First Class Honors",
			"Specialized in Software Development and System Administration",
		},
	})
}

func (s *Store) seedSkills(ctx context.Context) error {
	empty, err := s.tableEmpty(ctx, "skills")
	if err != nil || !empty {
		return err
	}
	skills := []Skill{
		{Category: "Technical Skills", Name: "Python", Level: 5},
		{Category: "Technical Skills", Name: "Shell Scripting", Level: 5},
		{Category: "Technical Skills", Name: "REDIS", Level: 4},
		{Category: "Technical Skills", Name: "Systemd", Level: 4},
		{Category: "Technical Skills", Name: "Automation", Level: 5},
		{Category: "Technical Skills", Name: "C/C++", Level: 4},
		{Category: "Technical Skills", Name: "Golang", Level: 3},
		{Category: "Technical Skills", Name: "REST API", Level: 4},
		{Category: "Technical Skills", Name: "Git", Level: 4},
		{Category: "Technical Skills", Name: "SVN", Level: 3},
		{Category: "Platforms & Tools", Name: "Ansible", Level: 4},
		{Category: "Platforms & Tools", Name: "PSSH", Level: 4},
		{Category: "Platforms & Tools", Name: "MySQL", Level: 3},
		{Category: "Platforms & Tools", Name: "RHEL/CentOS", Level: 5},
		{Category: "Platforms & Tools", Name: "Ubuntu", Level: 4},
		{Category: "Platforms & Tools", Name: "Pacemaker", Level: 4},
		{Category: "Platforms & Tools", Name: "Linux Networking", Level: 4},
		{Category: "Platforms & Tools", Name: "System Administration", Level: 5},
	}
	for _, sk := range skills {
		if err := s.SaveSkill(ctx, sk); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) seedAchievements(ctx context.Context) error {
	empty, err := s.tableEmpty(ctx, "achievements")
	if err != nil || !empty {
		return err
	}
	achievements := []Achievement{
		{
			Title:       "Indian Association of Physics Teachers (2013 - 2014)",
			Description: "Certificate of Merit for being in national top 1% in national standard examination in physics",
			Date:        "2014",
		},
		{
			Title:       "International Mathematics Olympiad (2013)",
			Description: "International Rank: 8, State Rank: 2",
			Date:        "2013",
		},
		{
			Title:       "National Science Olympiad (2013)",
			Description: "International Rank: 9, State Rank: 3",
			Date:        "2013",
		},
		{
			Title:       "PyCon India (10/2015)",
			Description: "Python developer community - The premier conference in India on using and developing the Python programming language",
			Date:        "2015",
		},
	}
	for _, a := range achievements {
		if err := s.SaveAchievement(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) seedProjects(ctx context.Context) error {
	empty, err := s.tableEmpty(ctx, "projects")
	if err != nil || !empty {
		return err
	}
	projects := []Project{
		{
			Title:        "Reader Writer Lock",
			Description:  "A C-based implementation of a reader-writer lock for file sharing over NFS. Supports multiple concurrent readers with exclusive writer access.",
			Technologies: "C, NFS, POSIX",
			Link:         "https://github.com/prakersh/reader-writer-lock",
		},
		{
			Title:        "encr - Encryption Tool",
			Description:  "A Shell-based wrapper over OpenSSL that provides an easy-to-use interface for file encryption and decryption with simple command line parameters.",
			Technologies: "Shell, OpenSSL, Bash",
			Link:         "https://github.com/prakersh/encr",
		},
		{
			Title:        "Python Progress Bar",
			Description:  "An implementation example of progress bars in Python for providing visual feedback to users during long-running operations.",
			Technologies: "Python, CLI, Utility",
			Link:         "https://github.com/prakersh/progressbar-python",
		},
		{
			Title:        "ShortTouch",
			Description:  "A Python utility that enables quick interactions with your system through customizable shortcuts and automation features.",
			Technologies: "Python, Automation, Utility",
			Link:         "https://github.com/prakersh/shorttouch",
		},
		{
			Title:        "Open Source Point of Sale",
			Description:  "A PHP web application using CodeIgniter for managing inventory, sales, and customers with a responsive interface.",
			Technologies: "PHP, CodeIgniter, MySQL",
			Link:         "https://github.com/prakersh/opensourcepos",
		},
		{
			Title:        "Portfolio Website",
			Description:  "A responsive PHP portfolio/resume website with print functionality. Features modern design with Bootstrap and comprehensive resume sections.",
			Technologies: "CSS, PHP, Bootstrap",
			Link:         "https://github.com/prakersh/prakersh.in",
		},
	}
	for _, p := range projects {
		if err := s.SaveProject(ctx, p); err != nil {
			return err
		}
	}
	return nil
}
